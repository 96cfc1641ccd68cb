package crawl

import (
	"sort"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Sort 对结果做最终排序（稳定排序，不修改输入切片）。
//
// - seq（默认）：按作品在队列中的位置、再按页码；与 worker 完成顺序无关
// - rank：名次升序，无名次的排在最后
// - bookmarks：收藏数降序
//
// rank/bookmarks 相同时回落到 seq 顺序。
func Sort(records []domain.ResultRecord, ordering domain.Ordering) []domain.ResultRecord {
	out := append([]domain.ResultRecord(nil), records...)

	bySeq := func(a, b domain.ResultRecord) bool {
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.Page < b.Page
	}

	var less func(a, b domain.ResultRecord) bool
	switch ordering {
	case domain.OrderRank:
		less = func(a, b domain.ResultRecord) bool {
			ra, okA := a.RankNumber()
			rb, okB := b.RankNumber()
			switch {
			case okA && okB && ra != rb:
				return ra < rb
			case okA != okB:
				return okA
			default:
				return bySeq(a, b)
			}
		}
	case domain.OrderBookmarks:
		less = func(a, b domain.ResultRecord) bool {
			if a.Bookmarks != b.Bookmarks {
				return a.Bookmarks > b.Bookmarks
			}
			return bySeq(a, b)
		}
	default:
		less = bySeq
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// outcomeOf 决定本次抓取的结果类别。
func outcomeOf(aborted bool, records int) string {
	switch {
	case aborted:
		return domain.OutcomeAborted
	case records == 0:
		return domain.OutcomeEmpty
	default:
		return domain.OutcomeFinished
	}
}
