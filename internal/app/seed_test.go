package app

import (
	"testing"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

func TestSeed_DedupKeepsFirstPosition(t *testing.T) {
	q, dup := Seed([]domain.WorkID{"3", "1", "", "3", "2", "1"})

	want := []domain.WorkID{"3", "1", "2"}
	if len(q) != len(want) {
		t.Fatalf("queue=%v want=%v", q, want)
	}
	for i := range want {
		if q[i] != want[i] {
			t.Fatalf("queue=%v want=%v", q, want)
		}
	}
	if len(dup) != 2 || dup[0] != "3" || dup[1] != "1" {
		t.Fatalf("duplicates=%v", dup)
	}
}

func TestSeed_Empty(t *testing.T) {
	q, dup := Seed(nil)
	if q == nil || len(q) != 0 {
		t.Fatalf("空输入应返回空（非 nil）队列：%v", q)
	}
	if len(dup) != 0 {
		t.Fatalf("不期望 duplicates：%v", dup)
	}
}
