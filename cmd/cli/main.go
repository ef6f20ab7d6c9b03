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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/go-link-store/pkg/adapters/metadata"
	"github.com/wadjakorntonsri/go-link-store/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-link-store/pkg/config"
	"github.com/wadjakorntonsri/go-link-store/pkg/core/services"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
)

// app holds what every command needs once the root pre-run has finished.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *sqlite.Manager
	svc     *services.LinkService
	fetcher *metadata.HTTPFetcher

	dbURL    string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() { _ = a.close() }()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	switch errx.KindOf(err) {
	case errx.Validation, errx.NotFound, errx.AlreadyExists:
		fmt.Fprintf(stderr, "Error: %s\n", errx.Message(err))
	case errx.Unknown:
		// cobra usage errors and the like
		fmt.Fprintf(stderr, "Error: %v\n", err)
	default:
		if a.log != nil {
			a.log.Error("command failed",
				zap.String(logger.FieldOp, errx.OpOf(err)),
				zap.String(logger.FieldKind, errx.KindOf(err).String()),
				zap.Error(err),
			)
		}
		fmt.Fprintf(stderr, "Error: %s\n", errx.Message(err))
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "linkstore",
		Short:         "Personal bookmark store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.dbURL, "db", "", "database path or libsql:// URL (overrides LINKSTORE_DATABASE_URL)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LINKSTORE_LOG_LEVEL)")

	root.AddCommand(
		newAddCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newReadCmd(a, true),
		newReadCmd(a, false),
		newMarkReadCmd(a),
		newStatsCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newBackupCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errx.E("cli.open", errx.Validation, err)
	}
	if a.dbURL != "" {
		cfg.Database.URL = a.dbURL
	}
	if a.logLevel != "" {
		cfg.App.LogLevel = a.logLevel
	}
	a.cfg = cfg

	log, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		return errx.E("cli.open", errx.Validation, err)
	}
	a.log = log

	if !cfg.Database.IsRemote() {
		if err := ensureDir(cfg.Database.URL); err != nil {
			return errx.E("cli.open", errx.Repository, err)
		}
	}

	db, err := sqlite.Open(ctx, sqlite.Options{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
		Logger:          log,
	})
	if err != nil {
		return err
	}
	a.db = db

	a.svc = services.NewLinkService(sqlite.NewSQLiteRepository(db, log), db, log,
		services.Options{TopDomains: cfg.App.TopDomains})
	a.fetcher = metadata.NewHTTPFetcher(metadata.Options{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
		Logger:    log,
	})
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// ensureDir creates the parent directory of a local database file.
func ensureDir(url string) error {
	path := strings.TrimPrefix(url, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.Contains(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
