package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitError 携带进程退出码；err 为空表示无需额外提示（报告已输出）。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// stdio 把进程的三个标准流显式传下去，便于测试。
type stdio struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// execute 运行 CLI 并返回退出码：0 成功；1 运行失败或结果为空；2 参数/配置错误。
func execute(ctx context.Context, args []string, in io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdio{in: in, out: stdout, err: stderr})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil && !errors.Is(ee.err, context.Canceled) {
			fmt.Fprintln(stderr, ee.err)
		}
		return ee.code
	}
	// cobra 自身的参数解析错误。
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return 2
}

func newRootCommand(std stdio) *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "pxcrawl",
		Short:         "并发抓取作品元数据并输出可下载记录",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "配置文件路径（默认读取 ./pxcrawl.toml，可选）")

	rootCmd.AddCommand(newCrawlCommand(std, &configFlag))
	rootCmd.AddCommand(newSourcesCommand(std))
	return rootCmd
}
