package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fhstp/meeteux-odwww/internal/config"

	_ "github.com/lib/pq"
)

const (
	defaultMaxConns = 4
	maxIdleTime     = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// NewPostgresDB 连接参观记录库
// 写入来自单个后台记录器，连接数很小；空闲连接定期释放。
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 || maxIdle > maxConns {
		maxIdle = maxConns
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(maxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return db, nil
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
