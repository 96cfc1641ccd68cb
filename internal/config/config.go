package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/John-Robertt/pxcrawl/internal/domain"
	"github.com/John-Robertt/pxcrawl/internal/export"
	"github.com/John-Robertt/pxcrawl/internal/filter"
	"github.com/John-Robertt/pxcrawl/internal/logging"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeWantInvalid 表示期望数量既不是正整数也不是 -1。
	ErrCodeWantInvalid = "want_invalid"
)

const (
	FileName = "pxcrawl.toml"

	DefaultSource         = "list"
	DefaultWant           = -1
	DefaultMaxConcurrency = 10
	DefaultRetryDelay     = 2 * time.Second
	DefaultAnimatedExt    = "zip"
	DefaultStateDir       = ".pxcrawl"
	DefaultHTTPTimeout    = 20 * time.Second
	DefaultTagLanguage    = "en"
	DefaultCacheTTL       = 24 * time.Hour
	DefaultOutputFormat   = "json"
	DefaultPageMaxPages   = 100
)

// CLIArgs 是 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --want=-1 必须能覆盖配置里的 want=5。
type CLIArgs struct {
	ConfigPath string

	Source    string
	SourceSet bool

	Want    int
	WantSet bool

	MaxConcurrency    int
	MaxConcurrencySet bool

	PerWorkPageLimit    int
	PerWorkPageLimitSet bool

	Sort    string
	SortSet bool

	OutputPath    string
	OutputPathSet bool

	RecordsPath    string
	RecordsPathSet bool

	OutputFormat    string
	OutputFormatSet bool

	LogLevel    string
	LogLevelSet bool

	// 各来源的主要输入。
	ListPath    string
	ListPathSet bool
	LocalDir    string
	LocalDirSet bool
	PageURL     string
	PageURLSet  bool

	RankingMode    string
	RankingModeSet bool
}

// FileConfig 对应 pxcrawl.toml 的解析结构。
type FileConfig struct {
	Source           string `toml:"source"`
	Want             *int   `toml:"want"`
	MaxConcurrency   int    `toml:"max_concurrency"`
	PerWorkPageLimit int    `toml:"per_work_page_limit"`
	RetryDelay       string `toml:"retry_delay"`
	MaxRetries       int    `toml:"max_retries"`
	AnimatedExt      string `toml:"animated_ext"`
	Sort             string `toml:"sort"`
	StateDir         string `toml:"state_dir"`

	Log     LogConfig     `toml:"log"`
	HTTP    HTTPConfig    `toml:"http"`
	Filter  FilterConfig  `toml:"filter"`
	Cache   CacheConfig   `toml:"cache"`
	Rank    RankConfig    `toml:"rank"`
	Output  OutputConfig  `toml:"output"`
	List    ListConfig    `toml:"list"`
	Local   LocalConfig   `toml:"local"`
	Page    PageConfig    `toml:"page"`
	Ranking RankingConfig `toml:"ranking"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type HTTPConfig struct {
	BaseURL       string  `toml:"base_url"`
	Cookie        string  `toml:"cookie"`
	ProxyURL      string  `toml:"proxy_url"`
	Timeout       string  `toml:"timeout"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
	TagLanguage   string  `toml:"tag_language"`
}

type FilterConfig struct {
	Types        []string `toml:"types"`
	MinBookmarks int      `toml:"min_bookmarks"`
	IncludeTags  []string `toml:"include_tags"`
	ExcludeTags  []string `toml:"exclude_tags"`
	Bookmarked   string   `toml:"bookmarked"`
	MinWidth     int      `toml:"min_width"`
	MinHeight    int      `toml:"min_height"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	TTL     string `toml:"ttl"`
}

type RankConfig struct {
	RedisAddr string `toml:"redis_addr"`
	RedisKey  string `toml:"redis_key"`
}

type OutputConfig struct {
	Path        string `toml:"path"`
	RecordsPath string `toml:"records_path"`
	Format      string `toml:"format"`
	SQSQueueURL string `toml:"sqs_queue_url"`
}

type ListConfig struct {
	Path string `toml:"path"`
}

type LocalConfig struct {
	Dir         string   `toml:"dir"`
	ExcludeDirs []string `toml:"exclude_dirs"`
}

type PageConfig struct {
	URL       string `toml:"url"`
	StartPage int    `toml:"start_page"`
	MaxPages  int    `toml:"max_pages"`
}

type RankingConfig struct {
	Mode    string `toml:"mode"`
	Content string `toml:"content"`
	Date    string `toml:"date"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	ConfigPath string // 实际读取的配置文件；未读取时为空

	Source           string
	Want             int
	MaxConcurrency   int
	PerWorkPageLimit int
	RetryDelay       time.Duration
	MaxRetries       int
	AnimatedExt      string
	Sort             domain.Ordering
	StateDir         string

	LogLevel  string
	LogFormat string

	BaseURL       string
	Cookie        string
	ProxyURL      string
	HTTPTimeout   time.Duration
	RatePerSecond float64
	Burst         int
	TagLanguage   string

	Filter filter.Rules

	CacheEnabled bool
	CachePath    string
	CacheTTL     time.Duration

	RedisAddr string
	RedisKey  string

	OutputPath   string
	RecordsPath  string
	OutputFormat string
	SQSQueueURL  string

	ListPath         string
	LocalDir         string
	LocalExcludeDirs []string
	PageURL          string
	PageStartPage    int
	PageMaxPages     int
	RankingMode      string
	RankingContent   string
	RankingDate      string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试读取 <cwd>/pxcrawl.toml（可选）
//
// 覆盖优先级（固定）：CLI 显式指定 > 配置文件 > 内置默认。
// 相对路径一律以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, cli, fc, cfgPath)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(cwd string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	eff := EffectiveConfig{}

	eff.Source = strings.ToLower(strings.TrimSpace(pick(cli.SourceSet, cli.Source, fc.Source, DefaultSource)))

	eff.Want = DefaultWant
	if fc.Want != nil {
		eff.Want = *fc.Want
	}
	if cli.WantSet {
		eff.Want = cli.Want
	}
	if err := ValidateWant(eff.Want); err != nil {
		return EffectiveConfig{}, err
	}

	// 并发：0 取默认；范围 [1, 10]，超出截断。
	eff.MaxConcurrency = fc.MaxConcurrency
	if cli.MaxConcurrencySet {
		eff.MaxConcurrency = cli.MaxConcurrency
	}
	if eff.MaxConcurrency == 0 {
		eff.MaxConcurrency = DefaultMaxConcurrency
	}
	if eff.MaxConcurrency < 1 {
		eff.MaxConcurrency = 1
	}
	if eff.MaxConcurrency > DefaultMaxConcurrency {
		eff.MaxConcurrency = DefaultMaxConcurrency
	}

	eff.PerWorkPageLimit = fc.PerWorkPageLimit
	if cli.PerWorkPageLimitSet {
		eff.PerWorkPageLimit = cli.PerWorkPageLimit
	}
	if eff.PerWorkPageLimit < 0 {
		eff.PerWorkPageLimit = 0
	}

	d, err := parseDuration(fc.RetryDelay, DefaultRetryDelay)
	if err != nil || d <= 0 {
		return EffectiveConfig{}, invalid("retry_delay 必须是正的时长（例如 2s）：%q", fc.RetryDelay)
	}
	eff.RetryDelay = d

	if fc.MaxRetries < 0 {
		return EffectiveConfig{}, invalid("max_retries 不能为负数：%d", fc.MaxRetries)
	}
	eff.MaxRetries = fc.MaxRetries

	eff.AnimatedExt = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fc.AnimatedExt)), ".")
	if eff.AnimatedExt == "" {
		eff.AnimatedExt = DefaultAnimatedExt
	}
	switch eff.AnimatedExt {
	case "zip", "gif", "webm":
	default:
		return EffectiveConfig{}, invalid("animated_ext 只能是 zip/gif/webm：%q", fc.AnimatedExt)
	}

	sortName := pick(cli.SortSet, cli.Sort, fc.Sort, "")
	ord, ok := domain.ParseOrdering(sortName)
	if !ok {
		return EffectiveConfig{}, invalid("sort 只能是 seq/rank/bookmarks：%q", sortName)
	}
	eff.Sort = ord

	eff.StateDir = absCleanFrom(cwd, pick(false, "", fc.StateDir, DefaultStateDir))

	eff.LogLevel = strings.ToLower(strings.TrimSpace(pick(cli.LogLevelSet, cli.LogLevel, fc.Log.Level, "info")))
	eff.LogFormat = strings.ToLower(strings.TrimSpace(fc.Log.Format))
	if !logging.ValidFormat(eff.LogFormat) {
		return EffectiveConfig{}, invalid("log.format 只能是 console/json：%q", fc.Log.Format)
	}

	if err := mergeHTTP(&eff, fc.HTTP, invalid); err != nil {
		return EffectiveConfig{}, err
	}
	if err := mergeFilter(&eff, fc.Filter, invalid); err != nil {
		return EffectiveConfig{}, err
	}

	eff.CacheEnabled = fc.Cache.Enabled
	eff.CachePath = absCleanFrom(cwd, fc.Cache.Path)
	if eff.CachePath == "" {
		eff.CachePath = filepath.Join(eff.StateDir, "cache.db")
	}
	if eff.CacheTTL, err = parseDuration(fc.Cache.TTL, DefaultCacheTTL); err != nil || eff.CacheTTL < 0 {
		return EffectiveConfig{}, invalid("cache.ttl 无效：%q", fc.Cache.TTL)
	}

	eff.RedisAddr = strings.TrimSpace(fc.Rank.RedisAddr)
	eff.RedisKey = strings.TrimSpace(fc.Rank.RedisKey)

	eff.OutputPath = absCleanFrom(cwd, pick(cli.OutputPathSet, cli.OutputPath, fc.Output.Path, ""))
	eff.RecordsPath = absCleanFrom(cwd, pick(cli.RecordsPathSet, cli.RecordsPath, fc.Output.RecordsPath, ""))
	eff.OutputFormat = strings.ToLower(strings.TrimSpace(pick(cli.OutputFormatSet, cli.OutputFormat, fc.Output.Format, DefaultOutputFormat)))
	if !export.ValidFormat(eff.OutputFormat) {
		return EffectiveConfig{}, invalid("output.format 只能是 json/jsonl/csv：%q", eff.OutputFormat)
	}
	eff.SQSQueueURL = strings.TrimSpace(fc.Output.SQSQueueURL)
	if eff.SQSQueueURL != "" {
		if err := validateHTTPURL(eff.SQSQueueURL); err != nil {
			return EffectiveConfig{}, invalid("output.sqs_queue_url 无效：%v", err)
		}
	}

	listPath := strings.TrimSpace(pick(cli.ListPathSet, cli.ListPath, fc.List.Path, ""))
	if listPath != "" && listPath != "-" {
		listPath = absCleanFrom(cwd, listPath)
	}
	eff.ListPath = listPath

	eff.LocalDir = absCleanFrom(cwd, pick(cli.LocalDirSet, cli.LocalDir, fc.Local.Dir, ""))
	eff.LocalExcludeDirs = append([]string(nil), fc.Local.ExcludeDirs...)

	eff.PageURL = strings.TrimSpace(pick(cli.PageURLSet, cli.PageURL, fc.Page.URL, ""))
	eff.PageStartPage = fc.Page.StartPage
	if eff.PageStartPage <= 0 {
		eff.PageStartPage = 1
	}
	eff.PageMaxPages = fc.Page.MaxPages
	if eff.PageMaxPages <= 0 {
		eff.PageMaxPages = DefaultPageMaxPages
	}

	eff.RankingMode = strings.ToLower(strings.TrimSpace(pick(cli.RankingModeSet, cli.RankingMode, fc.Ranking.Mode, "daily")))
	eff.RankingContent = strings.ToLower(strings.TrimSpace(fc.Ranking.Content))
	eff.RankingDate = strings.TrimSpace(fc.Ranking.Date)

	return eff, nil
}

func mergeHTTP(eff *EffectiveConfig, h HTTPConfig, invalid func(string, ...any) error) error {
	eff.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	if eff.BaseURL != "" {
		if err := validateHTTPURL(eff.BaseURL); err != nil {
			return invalid("http.base_url 无效：%v", err)
		}
	}
	eff.Cookie = strings.TrimSpace(h.Cookie)

	eff.ProxyURL = strings.TrimSpace(h.ProxyURL)
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("http.proxy_url 无效：%q", eff.ProxyURL)
		}
	}

	t, err := parseDuration(h.Timeout, DefaultHTTPTimeout)
	if err != nil || t <= 0 {
		return invalid("http.timeout 必须是正的时长：%q", h.Timeout)
	}
	eff.HTTPTimeout = t

	if h.RatePerSecond < 0 {
		return invalid("http.rate_per_second 不能为负数：%v", h.RatePerSecond)
	}
	eff.RatePerSecond = h.RatePerSecond
	eff.Burst = h.Burst
	if eff.Burst <= 0 {
		eff.Burst = 1
	}

	lang := strings.TrimSpace(h.TagLanguage)
	if lang == "" {
		lang = DefaultTagLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return invalid("http.tag_language 不是合法的 BCP-47 语言标签：%q", lang)
	}
	eff.TagLanguage = tag.String()
	return nil
}

func mergeFilter(eff *EffectiveConfig, f FilterConfig, invalid func(string, ...any) error) error {
	rules := filter.Rules{
		MinBookmarks: f.MinBookmarks,
		IncludeTags:  append([]string(nil), f.IncludeTags...),
		ExcludeTags:  append([]string(nil), f.ExcludeTags...),
		MinWidth:     f.MinWidth,
		MinHeight:    f.MinHeight,
	}
	for _, s := range f.Types {
		t, ok := domain.ParseItemType(s)
		if !ok {
			return invalid("filter.types 含未知类型：%q（可选 illust/manga/ugoira）", s)
		}
		rules.Types = append(rules.Types, t)
	}

	b := strings.ToLower(strings.TrimSpace(f.Bookmarked))
	switch b {
	case "", filter.BookmarkedAny:
		b = filter.BookmarkedAny
	case filter.BookmarkedYes, filter.BookmarkedNo:
	default:
		return invalid("filter.bookmarked 只能是 any/yes/no：%q", f.Bookmarked)
	}
	rules.Bookmarked = b

	eff.Filter = rules
	return nil
}

// ValidateWant 校验期望数量：正整数，或 -1 表示不限。
func ValidateWant(n int) error {
	if n >= 1 || n == -1 {
		return nil
	}
	return &Error{Code: ErrCodeWantInvalid, Err: fmt.Errorf("want 必须是正整数或 -1（不限），实际是 %d", n)}
}

// pick 实现 CLI > config > 默认 的选择。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return cliVal
	}
	if strings.TrimSpace(fileVal) != "" {
		return fileVal
	}
	return def
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；空串保持为空。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件；未知字段视为错误（避免拼写错误被静默忽略）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
