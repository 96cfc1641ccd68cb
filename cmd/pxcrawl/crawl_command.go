package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/pxcrawl/internal/app/crawl"
	"github.com/John-Robertt/pxcrawl/internal/config"
	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/logging"
	"github.com/John-Robertt/pxcrawl/internal/rank"
	"github.com/John-Robertt/pxcrawl/internal/source/ranking"
)

// crawlFlags 对应 `pxcrawl crawl` 的命令行参数；是否显式指定由 cmd.Flags().Changed 判断。
type crawlFlags struct {
	source      string
	want        int
	concurrency int
	pageLimit   int
	sort        string
	output      string
	records     string
	format      string
	logLevel    string
	list        string
	dir         string
	url         string
	mode        string
}

func newCrawlCommand(std stdio, configFlag *string) *cobra.Command {
	var f crawlFlags

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "从来源取得作品 id，并发抓取并输出结果集",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := f.toCLIArgs(cmd)
			cli.ConfigPath = *configFlag
			return runCrawl(cmd.Context(), std, cli)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.source, "source", "s", "", "来源：list|local|page|ranking（默认 list）")
	fl.IntVarP(&f.want, "want", "n", -1, "最多抓取多少个作品（-1 表示不限）")
	fl.IntVar(&f.concurrency, "concurrency", crawl.DefaultMaxConcurrency, "最大并发 worker 数（1-10）")
	fl.IntVar(&f.pageLimit, "page-limit", 0, "多页作品每个最多输出多少页（0 表示不限）")
	fl.StringVar(&f.sort, "sort", "", "结果排序：seq|rank|bookmarks（默认随来源）")
	fl.StringVarP(&f.output, "output", "o", "", "报告 JSON 写入的文件")
	fl.StringVar(&f.records, "records", "", "结果集导出文件")
	fl.StringVar(&f.format, "format", "", "结果集导出格式：json|jsonl|csv")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	fl.StringVar(&f.list, "list", "", "list 来源的输入文件（- 表示 stdin）")
	fl.StringVar(&f.dir, "dir", "", "local 来源扫描的目录")
	fl.StringVar(&f.url, "url", "", "page 来源的列表页 URL（含 {page} 占位符）")
	fl.StringVar(&f.mode, "mode", "", "ranking 来源的榜单类型（daily/weekly/...）")
	return cmd
}

func (f crawlFlags) toCLIArgs(cmd *cobra.Command) config.CLIArgs {
	changed := cmd.Flags().Changed
	return config.CLIArgs{
		Source:              f.source,
		SourceSet:           changed("source"),
		Want:                f.want,
		WantSet:             changed("want"),
		MaxConcurrency:      f.concurrency,
		MaxConcurrencySet:   changed("concurrency"),
		PerWorkPageLimit:    f.pageLimit,
		PerWorkPageLimitSet: changed("page-limit"),
		Sort:                f.sort,
		SortSet:             changed("sort"),
		OutputPath:          f.output,
		OutputPathSet:       changed("output"),
		RecordsPath:         f.records,
		RecordsPathSet:      changed("records"),
		OutputFormat:        f.format,
		OutputFormatSet:     changed("format"),
		LogLevel:            f.logLevel,
		LogLevelSet:         changed("log-level"),
		ListPath:            f.list,
		ListPathSet:         changed("list"),
		LocalDir:            f.dir,
		LocalDirSet:         changed("dir"),
		PageURL:             f.url,
		PageURLSet:          changed("url"),
		RankingMode:         f.mode,
		RankingModeSet:      changed("mode"),
	}
}

func runCrawl(ctx context.Context, std stdio, cli config.CLIArgs) error {
	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	log, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: std.err})
	if err != nil {
		return &exitError{code: 2, err: fmt.Errorf("初始化日志失败：%w", err)}
	}
	defer func() { _ = log.Sync() }()

	// 同一状态目录同时只允许一个抓取（缓存与报告都在这里）。
	if err := os.MkdirAll(eff.StateDir, 0o755); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("创建状态目录失败：%w", err)}
	}
	lock := flock.New(filepath.Join(eff.StateDir, "crawl.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("获取运行锁失败：%w", err)}
	}
	if !ok {
		return &exitError{code: 1, err: fmt.Errorf("另一个抓取正在使用状态目录 %s", eff.StateDir)}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("释放运行锁失败", zap.Error(err))
		}
	}()

	httpClient, err := newHTTPClient(eff)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	w, err := openWiring(eff, httpClient, log)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	defer w.Close()

	reg, err := buildRegistry(eff, httpClient, std.in, log)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("初始化来源失败：%w", err)}
	}
	src, ok := reg.Get(eff.Source)
	if !ok {
		return usageError("未知来源 %q（可选：%s）", eff.Source, strings.Join(reg.Names(), "/"))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var obs crawl.Observer
	if pw, interactive := pickProgressWriter(std); interactive {
		ui := newProgressUI(pw)
		ui.PrintConfig(eff)
		obs = ui
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID), zap.String("source", src.Name()))

	rep, err := crawl.Run(ctx, src, crawl.Options{
		RunID:            runID,
		MaxConcurrency:   eff.MaxConcurrency,
		PerWorkPageLimit: eff.PerWorkPageLimit,
		RetryDelay:       eff.RetryDelay,
		MaxRetries:       eff.MaxRetries,
		AnimatedExt:      eff.AnimatedExt,
		Ordering:         eff.Sort,
	}, crawl.Deps{
		Client:   w.client,
		Filter:   eff.Filter,
		Ranks:    w.ranksIndex(),
		Observer: obs,
		Logger:   log,
	})
	if err != nil {
		log.Error("列表阶段失败", zap.Error(err))
		return &exitError{code: 1, err: fmt.Errorf("列表阶段失败：%w", err)}
	}

	// 排行榜的名次共享给之后的运行（例如 list 来源抓同一批作品时仍带 #名次）。
	if rs, ok := src.(*ranking.Source); ok && w.redis != nil {
		publishRanks(w.redis, rs.Entries(), log)
	}

	failed := false
	if rep.Outcome != domain.OutcomeEmpty && rep.Outcome != domain.OutcomeInvalid {
		// 导出用独立 ctx：中止时已得到的结果仍然落盘。
		exportCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		sinks, err := w.sinks(exportCtx, eff, runID)
		if err != nil {
			log.Error("初始化导出目标失败", zap.Error(err))
			failed = true
		}
		for _, sink := range sinks {
			if err := sink.Export(exportCtx, rep.Records); err != nil {
				log.Error("导出结果失败", zap.Error(err))
				failed = true
			}
		}
		cancel()
	}

	if eff.OutputPath != "" {
		if err := writeReportFile(eff.OutputPath, rep); err != nil {
			log.Error("写入报告失败", zap.String("path", eff.OutputPath), zap.Error(err))
			failed = true
		}
	}

	emitReport(std, rep)

	if failed || rep.Outcome != domain.OutcomeFinished {
		return &exitError{code: 1}
	}
	return nil
}

func publishRanks(idx *rank.RedisIndex, entries []rank.Entry, log *zap.Logger) {
	if len(entries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := idx.Publish(ctx, entries); err != nil {
		log.Warn("发布排行榜名次失败", zap.Error(err))
		return
	}
	log.Info("已发布排行榜名次", zap.Int("entries", len(entries)))
}

// pickProgressWriter 只在交互终端启用进度输出；默认走 stderr（不污染 stdout JSON）。
func pickProgressWriter(std stdio) (io.Writer, bool) {
	if isTTY(std.err) {
		return std.err, true
	}
	return nil, false
}
