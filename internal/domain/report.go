package domain

import (
	"sort"
	"time"
)

const (
	OutcomeFinished = "finished"
	OutcomeEmpty    = "empty"
	OutcomeAborted  = "aborted"
	OutcomeInvalid  = "invalid"
)

// CrawlReport 是对外稳定输出（report 文件 / stdout JSON）的结构。
type CrawlReport struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`

	Summary  ReportSummary  `json:"summary"`
	Failures []ItemFailure  `json:"failures"`
	Records  []ResultRecord `json:"records"`
}

type ReportSummary struct {
	Seeded   int `json:"seeded"`
	Workers  int `json:"workers"`
	Dequeued int `json:"dequeued"`
	Retries  int `json:"retries"`
	Dropped  int `json:"dropped"`
	Filtered int `json:"filtered"`
	Works    int `json:"works"`
	Records  int `json:"records"`

	// Discarded 是中止时被放弃的作品数（等待重试中或抓取中），不计入 Dropped。
	Discarded int `json:"discarded"`
}

// ItemFailure 记录一次永久失败（作品被丢弃）。
type ItemFailure struct {
	ID         WorkID `json:"id"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) failures 按 id 稳定排序（worker 完成顺序不确定）
// 3) Records 计数与切片长度保持一致；nil 切片规范化为空切片
func (r *CrawlReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Failures == nil {
		r.Failures = []ItemFailure{}
	}
	if r.Records == nil {
		r.Records = []ResultRecord{}
	}

	sort.SliceStable(r.Failures, func(i, j int) bool {
		a, b := r.Failures[i].ID, r.Failures[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})

	r.Summary.Records = len(r.Records)
	r.Summary.Dropped = len(r.Failures)
}
