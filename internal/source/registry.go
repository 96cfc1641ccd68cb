package source

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是来源的只读注册表（按小写 name 索引）。
type Registry struct {
	byName map[string]Source
}

func NewRegistry(sources ...Source) (Registry, error) {
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		if s == nil {
			return Registry{}, fmt.Errorf("source 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("source.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 source：%q", name)
		}
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Source, bool) {
	if r.byName == nil {
		return nil, false
	}
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names 返回已注册来源名（排序后，保证稳定）。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
