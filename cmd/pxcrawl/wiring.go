package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/John-Robertt/pxcrawl/internal/config"
	"github.com/John-Robertt/pxcrawl/internal/export"
	"github.com/John-Robertt/pxcrawl/internal/fetch"
	"github.com/John-Robertt/pxcrawl/internal/fetch/pixiv"
	"github.com/John-Robertt/pxcrawl/internal/infra/cache"
	"github.com/John-Robertt/pxcrawl/internal/infra/httpx"
	"github.com/John-Robertt/pxcrawl/internal/rank"
	"github.com/John-Robertt/pxcrawl/internal/source"
	"github.com/John-Robertt/pxcrawl/internal/source/list"
	"github.com/John-Robertt/pxcrawl/internal/source/local"
	"github.com/John-Robertt/pxcrawl/internal/source/page"
	"github.com/John-Robertt/pxcrawl/internal/source/ranking"
)

func newHTTPClient(eff config.EffectiveConfig) (*http.Client, error) {
	var header http.Header
	if eff.Cookie != "" {
		header = http.Header{"Cookie": []string{eff.Cookie}}
	}
	c, err := httpx.NewClient(httpx.Options{
		ProxyURL:      eff.ProxyURL,
		Timeout:       eff.HTTPTimeout,
		RatePerSecond: eff.RatePerSecond,
		Burst:         eff.Burst,
		Header:        header,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP client 失败：%w", err)
	}
	return c, nil
}

// wiring 持有一次抓取期间需要关闭的外部资源。
type wiring struct {
	client fetch.Client
	store  *cache.Store
	redis  *rank.RedisIndex
	log    *zap.Logger
}

func openWiring(eff config.EffectiveConfig, hc *http.Client, log *zap.Logger) (*wiring, error) {
	w := &wiring{log: log}

	var client fetch.Client = &pixiv.Client{HTTP: hc, BaseURL: eff.BaseURL, TagLanguage: eff.TagLanguage}
	if eff.CacheEnabled {
		st, err := cache.Open(eff.CachePath)
		if err != nil {
			return nil, fmt.Errorf("打开缓存失败：%w", err)
		}
		w.store = st
		if n, err := st.Prune(context.Background(), eff.CacheTTL); err != nil {
			log.Warn("清理过期缓存失败", zap.Error(err))
		} else if n > 0 {
			log.Info("已清理过期缓存", zap.Int64("rows", n))
		}
		client = fetch.Cached(client, st, eff.CacheTTL)
	}
	w.client = client

	if eff.RedisAddr != "" {
		w.redis = rank.NewRedisIndex(eff.RedisAddr, eff.RedisKey, log)
	}
	return w, nil
}

// ranksIndex 返回外部名次索引；未配置 redis 时为 nil（核心流程退回“无名次”）。
func (w *wiring) ranksIndex() rank.Index {
	if w.redis == nil {
		return nil
	}
	return w.redis
}

// sinks 按配置组装导出目标；未配置任何目标时返回空。
func (w *wiring) sinks(ctx context.Context, eff config.EffectiveConfig, runID string) ([]export.Exporter, error) {
	var out []export.Exporter
	if eff.RecordsPath != "" {
		out = append(out, export.FileSink{Path: eff.RecordsPath, Format: eff.OutputFormat})
	}
	if eff.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return out, fmt.Errorf("加载 AWS 配置失败：%w", err)
		}
		out = append(out, export.NewSQSSink(sqs.NewFromConfig(awsCfg), eff.SQSQueueURL, runID, w.log))
	}
	return out, nil
}

func (w *wiring) Close() {
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.Warn("关闭缓存失败", zap.Error(err))
		}
	}
	if w.redis != nil {
		if err := w.redis.Close(); err != nil {
			w.log.Warn("关闭 redis 连接失败", zap.Error(err))
		}
	}
}

// buildRegistry 按生效配置构造全部来源；实际使用哪一个由 eff.Source 决定。
func buildRegistry(eff config.EffectiveConfig, hc *http.Client, stdin io.Reader, log *zap.Logger) (source.Registry, error) {
	return source.NewRegistry(
		&list.Source{Path: eff.ListPath, Stdin: stdin, Want: eff.Want, Log: log},
		&local.Source{Dir: eff.LocalDir, ExcludeDirs: eff.LocalExcludeDirs, Want: eff.Want},
		&page.Source{HTTP: hc, URL: eff.PageURL, StartPage: eff.PageStartPage, Want: eff.Want, MaxPages: eff.PageMaxPages},
		&ranking.Source{
			HTTP:    hc,
			BaseURL: eff.BaseURL,
			Mode:    eff.RankingMode,
			Content: eff.RankingContent,
			Date:    eff.RankingDate,
			Want:    eff.Want,
		},
	)
}
