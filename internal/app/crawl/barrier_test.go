package crawl

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBarrier_FiresExactlyOnce(t *testing.T) {
	const n = 50
	b := NewBarrier(n)

	var fired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Arrive() {
				fired.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 1, b.Fired())
	select {
	case <-b.Done():
	default:
		t.Fatalf("完成信号应已触发")
	}

	// 触发后计数已归零且未布防：多余的到达被忽略。
	assert.False(t, b.Arrive())
	assert.Equal(t, 1, b.Fired())
	assert.Equal(t, 0, b.Pending())
}

func TestBarrier_NotBeforeLastArrival(t *testing.T) {
	b := NewBarrier(3)
	assert.False(t, b.Arrive())
	assert.False(t, b.Arrive())
	assert.Equal(t, 1, b.Pending())
	select {
	case <-b.Done():
		t.Fatalf("只有 2/3 到达时不应触发")
	default:
	}
	assert.True(t, b.Arrive())
}

func TestBarrier_ZeroTotalFiresImmediately(t *testing.T) {
	b := NewBarrier(0)
	<-b.Done()
	assert.Equal(t, 1, b.Fired())
}

func TestBarrier_RearmForSequentialRuns(t *testing.T) {
	b := NewBarrier(1)
	assert.True(t, b.Arrive())
	first := b.Done()

	b.Arm(2)
	assert.False(t, b.Arrive())
	assert.True(t, b.Arrive())
	<-b.Done()
	<-first
	assert.Equal(t, 2, b.Fired())
}
