package crawl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

func TestQueue_FIFOAndSeq(t *testing.T) {
	q := NewQueue(ids("a", "b"))
	assert.Equal(t, 2, q.Len())

	id, seq, ok := q.DequeueOne()
	require.True(t, ok)
	assert.Equal(t, domain.WorkID("a"), id)
	assert.Equal(t, 0, seq)

	id, seq, ok = q.DequeueOne()
	require.True(t, ok)
	assert.Equal(t, domain.WorkID("b"), id)
	assert.Equal(t, 1, seq)

	_, _, ok = q.DequeueOne()
	assert.False(t, ok)
	_, _, ok = q.DequeueOne()
	assert.False(t, ok, "空队列之后一直为空")
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ConcurrentDequeueDeliversEachIDOnce(t *testing.T) {
	const n = 1000
	in := make([]domain.WorkID, 0, n)
	for i := 0; i < n; i++ {
		in = append(in, domain.WorkID(fmt.Sprint(i)))
	}
	q := NewQueue(in)

	var mu sync.Mutex
	seen := map[domain.WorkID]int{}
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				id, _, ok := q.DequeueOne()
				if !ok {
					return
				}
				mu.Lock()
				seen[id]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for id, c := range seen {
		if c != 1 {
			t.Fatalf("id %s 被出队 %d 次", id, c)
		}
	}
}

func TestQueue_DoesNotAliasInput(t *testing.T) {
	in := ids("a")
	q := NewQueue(in)
	in[0] = "z"
	id, _, _ := q.DequeueOne()
	assert.Equal(t, domain.WorkID("a"), id)
}
