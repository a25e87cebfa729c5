package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/metrics"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App holds the wired collaborators for one command invocation.
type App struct {
	cfg       fileConfig
	logger    *glog.BaseLogger
	db        *bun.DB
	redis     *redis.Client
	registry  *prometheus.Registry
	service   *accounts.Service
	notifyOut io.Writer
	auditLog  *os.File
}

func newLogger(verbose bool) *glog.BaseLogger {
	if verbose {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("accountsctl"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("accountsctl"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

// newApp connects to SQLite and Redis and builds the account service.
func newApp(ctx context.Context, cfg fileConfig, verbose bool, notifyOut io.Writer) (*App, error) {
	if notifyOut == nil {
		notifyOut = os.Stdout
	}
	app := &App{
		cfg:       cfg,
		logger:    newLogger(verbose),
		registry:  prometheus.NewRegistry(),
		notifyOut: notifyOut,
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Runtime.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.db = bun.NewDB(sqldb, sqlitedialect.New())

	if err := accounts.CreateAccountsTable(ctx, app.db); err != nil {
		app.Close()
		return nil, fmt.Errorf("bootstrap accounts table: %w", err)
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr: cfg.Runtime.RedisAddr,
		DB:   cfg.Runtime.RedisDB,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Runtime.RedisAddr, err)
	}

	counter, err := metrics.NewActivityCounter(app.registry)
	if err != nil {
		app.Close()
		return nil, err
	}

	tokens := accounts.NewRedisConfirmationStore(app.redis, cfg.Accounts.Confirmation.KeyPrefix,
		accounts.WithConfirmationLogger(app.GetLogger("confirmation")),
	)
	sessions, err := accounts.NewJWTSessionService([]byte(cfg.Accounts.Session.SigningKey), cfg.Accounts.Session.Issuer,
		accounts.WithSessionLogger(app.GetLogger("session")),
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	svc, err := accounts.NewService(cfg.Accounts, accounts.NewAccountsRepository(app.db), tokens, sessions)
	if err != nil {
		app.Close()
		return nil, err
	}
	sinks := []accounts.ActivitySink{
		accounts.NewLoggerActivitySink(app.GetLogger("activity")),
		counter,
	}
	if path := cfg.Runtime.AuditLog; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open audit log %s: %w", path, err)
		}
		app.auditLog = f
		sinks = append(sinks, activitymap.NewSink(f))
	}

	app.service = svc.
		WithLogger(app.GetLogger("accounts")).
		WithNotifier(accounts.NewConsoleNotifier(notifyOut)).
		WithActivitySink(accounts.NewFanOutActivitySink(sinks...))

	return app, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.auditLog != nil {
		_ = a.auditLog.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
