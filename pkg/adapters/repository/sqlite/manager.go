package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Local SQLite driver

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

const (
	driverSQLite = "sqlite"
	driverLibSQL = "libsql"
)

// Options configures the connection pool.
type Options struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
	Logger          *zap.Logger
}

// Manager owns the database handle and hands out scoped sessions.
type Manager struct {
	db     *sql.DB
	driver string
	log    *zap.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sessionKey struct{ m *Manager }

// Open connects to the database named by opts.URL and makes sure the schema
// exists. libsql:// and wss:// URLs go to Turso, everything else is a local
// SQLite file.
func Open(ctx context.Context, opts Options) (*Manager, error) {
	const op = "sqlite.Open"

	log := logger.OrNop(opts.Logger)
	driver, dsn := resolveDSN(opts.URL, opts.BusyTimeout)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errx.E(op, errx.Repository, err)
	}

	maxOpen := opts.MaxOpenConns
	if isMemory(opts.URL) {
		// Every connection to :memory: is a separate database.
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errx.E(op, errx.Repository, fmt.Errorf("ping %s: %w", driver, err))
	}

	m := &Manager{db: db, driver: driver, log: log}
	if _, err := m.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug("database ready", zap.String(logger.FieldDriver, driver), zap.Int("maxOpenConns", maxOpen))
	return m, nil
}

// WithSession runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error or panic. A ctx that already carries a
// session from this manager is passed through unchanged.
func (m *Manager) WithSession(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "sqlite.Manager.WithSession"

	if _, ok := ctx.Value(sessionKey{m}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.E(op, errx.Repository, fmt.Errorf("begin: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				m.log.Error("rollback failed", zap.Error(rbErr), zap.NamedError("cause", err))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = errx.E(op, errx.Repository, fmt.Errorf("commit: %w", cErr))
		}
	}()

	return fn(context.WithValue(ctx, sessionKey{m}, tx))
}

// conn returns the session transaction carried by ctx, or the pool.
func (m *Manager) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(sessionKey{m}).(*sql.Tx); ok {
		return tx
	}
	return m.db
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func resolveDSN(url string, busyTimeout time.Duration) (driver, dsn string) {
	if strings.Contains(url, "libsql://") || strings.Contains(url, "wss://") {
		return driverLibSQL, url
	}

	dsn = url
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	// Sessions read before they write. A deferred transaction would fail with
	// SQLITE_BUSY on the lock upgrade instead of waiting out busy_timeout.
	pragmas := []string{"_txlock=immediate"}
	if busyTimeout > 0 && !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeout.Milliseconds()))
	}
	if !isMemory(url) && !strings.Contains(dsn, "journal_mode") {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return driverSQLite, dsn + sep + strings.Join(pragmas, "&")
}

func isMemory(url string) bool {
	return strings.Contains(url, ":memory:") || strings.Contains(url, "mode=memory")
}

var _ ports.SessionManager = (*Manager)(nil)
