// Package postgres opens a bun handle over pgdriver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	logx "github.com/tanpawarit/laia-quote-agent/pkg/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
	LogQueries   bool          `envconfig:"LOG_QUERIES" split_words:"true" default:"false"`
}

// Enabled reports whether a DSN was configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

// Open builds the handle without dialing; call Ping to check connectivity.
func Open(cfg Config) (*bun.DB, error) {
	if !cfg.Enabled() {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(timeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(queryLogger{verbose: cfg.LogQueries})
	return db, nil
}

func Ping(ctx context.Context, db *bun.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// queryLogger reports failed queries, and every query when verbose.
type queryLogger struct {
	verbose bool
}

var _ bun.QueryHook = queryLogger{}

func (queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	failed := event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows)
	if !failed && !h.verbose {
		return
	}

	ev := log.Debug()
	if failed {
		ev = log.Warn().Str("err", logx.MaskString(event.Err.Error()))
	}
	ev.
		Str("operation", event.Operation()).
		Dur("elapsed", time.Since(event.StartTime)).
		Str("query", logx.Truncate(logx.MaskString(event.Query), 500)).
		Msg("postgres query")
}
