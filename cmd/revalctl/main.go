// Command revalctl is the operator CLI for the revalidation service. It talks
// to the database directly and shares the server's configuration.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	_ "github.com/lib/pq"

	"revalidation/internal/cycle/service"
	"revalidation/internal/cycle/snapshot"
	"revalidation/internal/cycle/store"
	evidencememory "revalidation/internal/evidence/memory"
	"revalidation/internal/platform/config"
	"revalidation/internal/platform/logger"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// app holds what every command needs. openService is swapped in tests.
type app struct {
	cfg         config.Config
	out         io.Writer
	openService func(ctx context.Context) (*service.Service, func(), error)
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(3)
	}
	a := &app{cfg: cfg, out: os.Stdout}
	a.openService = a.openPostgresService

	if err := newRootCmd(a).Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openPostgresService builds a service over the production stores. Evidence
// is never read by the CLI commands, so an empty in-memory source suffices.
func (a *app) openPostgresService(ctx context.Context) (*service.Service, func(), error) {
	if a.cfg.Database.URL == "" {
		return nil, nil, codeError(3, "DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", a.cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	log := logger.NewWithWriter(os.Stderr, a.cfg.Log.Format, a.cfg.Log.Level)
	cycles := store.NewPostgres(db)
	tx := store.NewPostgresTx(db, cycles, store.NewPostgresAudit(db)).WithTimeout(a.cfg.Database.TxTimeout)
	svc := service.New(cycles, tx, snapshot.New(evidencememory.New()), service.WithLogger(log))
	return svc, func() { _ = db.Close() }, nil
}
