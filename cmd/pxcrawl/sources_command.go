package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/pxcrawl/internal/config"
	"github.com/John-Robertt/pxcrawl/internal/logging"
	"github.com/John-Robertt/pxcrawl/internal/source"
)

func newSourcesCommand(std stdio) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "列出可用的作品来源",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 来源只需要零值配置即可描述自己，不读配置文件。
			reg, err := buildRegistry(config.EffectiveConfig{}, nil, nil, logging.NewNop())
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			fmt.Fprintln(std.out, renderSources(reg))
			return nil
		},
	}
}

func renderSources(reg source.Registry) string {
	rows := make([][]string, 0)
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		desc := ""
		if d, ok := s.(source.Describer); ok {
			desc = d.Describe()
		}
		rows = append(rows, []string{name, desc})
	}
	return renderTable([]string{"SOURCE", "DESCRIPTION"}, rows, nil)
}
