package store

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/azerpas/bourso-desktop/internal/config"
)

// SQLite 封装运行日志使用的 SQLite 连接。
type SQLite struct {
	db *sql.DB
}

// NewSQLite 根据配置初始化 SQLite 存储。
// 内存模式下强制单连接且保持空闲连接，否则每个连接都会拿到一个独立的空库。
func NewSQLite(cfg config.DatabaseConfig) (*SQLite, error) {
	dsn := cfg.Path
	maxOpen := cfg.MaxOpenConns
	maxIdle := cfg.MaxIdleConns
	if cfg.InMemory {
		dsn = ":memory:"
		maxOpen = 1
		maxIdle = 1
	} else {
		if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("store: 打开 SQLite 数据库失败: %w", err)
	}

	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	if !cfg.InMemory {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if !cfg.InMemory {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("store: 设置 SQLite WAL 模式失败: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("store: 设置 SQLite 同步级别失败: %w", err)
	}

	return &SQLite{db: conn}, nil
}

// DB 返回底层 *sql.DB.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// Close 关闭数据库连接。
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
