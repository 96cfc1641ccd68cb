package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/John-Robertt/pxcrawl/internal/domain"
)

// Store 把抓取到的作品详情缓存在 SQLite 中（<state>/cache.db）。
//
// 约束：
// - 只缓存成功结果；失败由上层决定是否重试，不落盘
type Store struct {
	db   *sql.DB
	path string

	now func() time.Time
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS details (
	kind       TEXT    NOT NULL,
	work_id    TEXT    NOT NULL,
	payload    BLOB    NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (kind, work_id)
)`

// Open 打开（或创建）path 指向的缓存数据库。
func Open(path string) (*Store, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." {
		return nil, fmt.Errorf("cache path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path 返回数据库文件路径。
func (s *Store) Path() string { return s.path }

// Close 关闭底层连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get 读取缓存；maxAge<=0 表示不过期。
func (s *Store) Get(ctx context.Context, kind string, id domain.WorkID, maxAge time.Duration) ([]byte, bool, error) {
	k, err := cleanKind(kind)
	if err != nil {
		return nil, false, err
	}
	if id == "" {
		return nil, false, fmt.Errorf("work id 不能为空")
	}

	var (
		payload   []byte
		fetchedAt int64
	)
	row := s.db.QueryRowContext(ctx, "SELECT payload, fetched_at FROM details WHERE kind = ? AND work_id = ?", k, string(id))
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache %s/%s: %w", k, id, err)
	}

	if maxAge > 0 && s.now().Sub(time.Unix(fetchedAt, 0)) > maxAge {
		return nil, false, nil
	}
	return payload, true, nil
}

// Put 写入（覆盖）缓存。
func (s *Store) Put(ctx context.Context, kind string, id domain.WorkID, data []byte) error {
	k, err := cleanKind(kind)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("work id 不能为空")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO details (kind, work_id, payload, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, work_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		k, string(id), data, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write cache %s/%s: %w", k, id, err)
	}
	return nil
}

// Prune 删除早于 maxAge 的条目，返回删除数量。
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM details WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

var kindRE = regexp.MustCompile(`^[a-z0-9_]+$`)

func cleanKind(k string) (string, error) {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return "", fmt.Errorf("cache kind 不能为空")
	}
	if !kindRE.MatchString(k) {
		return "", fmt.Errorf("非法 cache kind：%q", k)
	}
	return k, nil
}
