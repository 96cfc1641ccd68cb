package list

import (
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// 一行中可能出现的作品 id 形态：
// - 纯数字
// - 作品页 URL：/artworks/<id>、/en/artworks/<id>
// - 旧式 URL：illust_id=<id>
var (
	artworkRE = regexp.MustCompile(`/artworks/([0-9]{1,12})\b`)
	legacyRE  = regexp.MustCompile(`[?&]illust_id=([0-9]{1,12})\b`)
)

type UnmatchedError struct {
	// Kind: "no_match" 或 "ambiguous"
	Kind string

	// Candidates 仅在 ambiguous 时返回（已排序，保证稳定）。
	Candidates []domain.WorkID
}

func (e *UnmatchedError) Error() string {
	switch e.Kind {
	case "no_match":
		return "无法从该行解析出作品 id"
	case "ambiguous":
		parts := make([]string, 0, len(e.Candidates))
		for _, c := range e.Candidates {
			parts = append(parts, string(c))
		}
		return "解析到多个不同作品 id（ambiguous）：" + strings.Join(parts, ", ")
	default:
		return "unmatched"
	}
}

// Extract 从一行文本中提取唯一作品 id。
// 若提取失败，返回 *UnmatchedError（no_match / ambiguous）。
func Extract(line string) (domain.WorkID, error) {
	line = strings.TrimSpace(line)
	if id, ok := domain.ParseWorkID(line); ok {
		return id, nil
	}

	m := map[domain.WorkID]struct{}{}
	for _, re := range []*regexp.Regexp{artworkRE, legacyRE} {
		for _, sub := range re.FindAllStringSubmatch(line, -1) {
			if id, ok := domain.ParseWorkID(sub[1]); ok {
				m[id] = struct{}{}
			}
		}
	}

	if len(m) == 0 {
		return "", &UnmatchedError{Kind: "no_match"}
	}
	if len(m) > 1 {
		cands := make([]domain.WorkID, 0, len(m))
		for c := range m {
			cands = append(cands, c)
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i] < cands[j] })
		return "", &UnmatchedError{Kind: "ambiguous", Candidates: cands}
	}
	for c := range m {
		return c, nil
	}
	return "", &UnmatchedError{Kind: "no_match"}
}
