package list

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/source"
)

const Name = "list"

// Source 从文本文件（或 stdin）逐行读取作品 id / 作品 URL。
//
// 规则：
// - 空行与 # 开头的注释行忽略
// - 无法解析或解析到多个 id 的行跳过并记录告警
// - Want > 0 时最多产出 Want 个 id；-1 表示全部
type Source struct {
	Path  string // 为空或 "-" 时读 Stdin
	Stdin io.Reader
	Want  int
	Log   *zap.Logger
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Describer = (*Source)(nil)
)

func (s *Source) Name() string { return Name }

func (s *Source) Describe() string { return "从文本文件或 stdin 逐行读取作品 id / 作品 URL" }

func (s *Source) ProduceIdentifiers(ctx context.Context) ([]domain.WorkID, error) {
	r, closeFn, err := s.open()
	if err != nil {
		return nil, &source.Error{Source: Name, Stage: "read", Err: err}
	}
	defer closeFn()

	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]domain.WorkID, 0, 64)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		id, err := Extract(text)
		if err != nil {
			var ue *UnmatchedError
			reason := err.Error()
			if errors.As(err, &ue) {
				reason = ue.Kind
			}
			log.Warn("跳过无法解析的行",
				zap.Int("line", lineNo),
				zap.String("text", text),
				zap.String("reason", reason),
				zap.Error(err),
			)
			continue
		}

		out = append(out, id)
		if s.Want > 0 && len(out) >= s.Want {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &source.Error{Source: Name, Stage: "read", Err: err}
	}
	return out, nil
}

// ResetListingState 无需处理：逐行读取不保留跨调用状态。
func (s *Source) ResetListingState() {}

func (s *Source) open() (io.Reader, func(), error) {
	p := strings.TrimSpace(s.Path)
	if p == "" || p == "-" {
		if s.Stdin == nil {
			return os.Stdin, func() {}, nil
		}
		return s.Stdin, func() {}, nil
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
