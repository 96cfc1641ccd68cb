package source

import (
	"context"
	"fmt"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/rank"
)

// Source 是“作品 id 从哪里来”的抓取来源（列表文件、本地目录、列表页、排行榜……）。
//
// 约束：
// - ProduceIdentifiers 在抓取开始前调用一次，返回有序的 id 序列
// - ResetListingState 在播种完成后调用一次，丢弃列表阶段的临时状态（游标等）
type Source interface {
	Name() string
	ProduceIdentifiers(ctx context.Context) ([]domain.WorkID, error)
	ResetListingState()
}

// Ranked 由能提供排名的来源实现（例如排行榜）。
type Ranked interface {
	RankIndex() rank.Index
}

// Ordered 由偏好特定结果排序的来源实现。
type Ordered interface {
	Ordering() domain.Ordering
}

// Describer 提供一行说明（用于 `pxcrawl sources`）。
type Describer interface {
	Describe() string
}

// Error 是来源阶段的可追溯错误。
type Error struct {
	Source string // source name（小写）
	Stage  string // "config" / "fetch" / "parse" / "read"
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
