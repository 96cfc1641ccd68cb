package local

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/source"
)

const Name = "local"

// 已下载文件的命名：<id>.<ext>、<id>_p<n>.<ext>、<id>_ugoira.<ext>，允许文件名后缀附带标题等信息（以 "-"/" " 分隔）。
var fileRE = regexp.MustCompile(`^([0-9]{1,12})(?:_p[0-9]+|_ugoira[0-9a-z]*)?(?:[ _-].*)?\.[A-Za-z0-9]+$`)

// Source 扫描本地下载目录，重新抓取其中作品的最新信息。
//
// 规则（硬约束）：
// - excludeDirs 均视为相对 Dir 的路径（若是绝对路径，则按绝对路径处理）
// - 只做目录遍历，不读文件内容
// - 输出按相对路径排序，同一作品只出现一次（以第一次出现的位置为准）
type Source struct {
	Dir         string
	ExcludeDirs []string
	Want        int

	files int
}

var (
	_ source.Source    = (*Source)(nil)
	_ source.Describer = (*Source)(nil)
)

func (s *Source) Name() string { return Name }

func (s *Source) Describe() string { return "扫描本地下载目录中的 <id>_p<n>.<ext> 文件" }

func (s *Source) ProduceIdentifiers(ctx context.Context) ([]domain.WorkID, error) {
	root := strings.TrimSpace(s.Dir)
	if root == "" {
		return nil, &source.Error{Source: Name, Stage: "config", Err: errDirEmpty}
	}
	root = filepath.Clean(root)
	excluded := buildExcluded(root, s.ExcludeDirs)

	type hit struct {
		rel string
		id  domain.WorkID
	}
	hits := make([]hit, 0, 128)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		m := fileRE.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		id, ok := domain.ParseWorkID(m[1])
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hits = append(hits, hit{rel: rel, id: id})
		return nil
	})
	if err != nil {
		return nil, &source.Error{Source: Name, Stage: "read", Err: err}
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(hits, func(i, j int) bool { return hits[i].rel < hits[j].rel })
	s.files = len(hits)

	seen := make(map[domain.WorkID]struct{}, len(hits))
	out := make([]domain.WorkID, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.id]; ok {
			continue
		}
		seen[h.id] = struct{}{}
		out = append(out, h.id)
		if s.Want > 0 && len(out) >= s.Want {
			break
		}
	}
	return out, nil
}

// Files 返回最近一次扫描命中的文件数（ResetListingState 后归零）。
func (s *Source) Files() int { return s.files }

func (s *Source) ResetListingState() { s.files = 0 }

type constError string

func (e constError) Error() string { return string(e) }

const errDirEmpty = constError("local.dir 不能为空")

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(filepath.Separator))
}
