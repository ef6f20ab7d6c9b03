package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/go-link-store/pkg/adapters/transfer"
	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
)

// maxShownFailures caps the per-record failures printed after an import.
const maxShownFailures = 5

func newImportCmd(a *app) *cobra.Command {
	var (
		format string
		fetch  bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import links from a JSON, CSV, TXT or HTML bookmarks file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			const op = "cli.import"
			path := args[0]

			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			file, err := os.Open(path)
			if err != nil {
				return errx.E(op, errx.Validation, err)
			}
			defer file.Close()

			records, err := transfer.Parse(bufio.NewReader(file), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No links found in", path)
				return nil
			}

			opts := transfer.ImporterOptions{
				FetchConcurrency: a.cfg.Fetch.Concurrency,
				Logger:           a.log,
			}
			if fetch {
				opts.Fetcher = a.fetcher
			}
			res, err := transfer.NewImporter(a.svc, opts).Import(cmd.Context(), records)
			if err != nil {
				return err
			}
			a.log.Info("links imported",
				zap.String(logger.FieldFile, path),
				zap.String(logger.FieldFormat, string(f)),
				zap.Int(logger.FieldCount, res.Added),
			)

			fmt.Fprintf(out, "Imported %d of %d links", res.Added, res.Total)
			if res.Fetched > 0 {
				fmt.Fprintf(out, " (%d descriptions fetched)", res.Fetched)
			}
			fmt.Fprintln(out)
			if len(res.Failures) > 0 {
				fmt.Fprintf(out, "%d links failed:\n", len(res.Failures))
				for i, fail := range res.Failures {
					if i == maxShownFailures {
						fmt.Fprintf(out, "  ... and %d more\n", len(res.Failures)-maxShownFailures)
						break
					}
					fmt.Fprintf(out, "  %s\n", fail)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, csv, txt or html (default from the file extension)")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch descriptions for links that have none")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file|->",
		Short: "Export every link to JSON or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if path == "-" && format == "" {
				format = string(transfer.FormatJSON)
			}
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			if path == "-" {
				links, err := a.svc.ListLinks(cmd.Context())
				if err != nil {
					return err
				}
				return transfer.Export(cmd.OutOrStdout(), f, links)
			}

			n, err := a.exportFile(cmd.Context(), path, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d links to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or csv (default from the file extension)")
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write every link to links_export.<format> in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := transfer.ParseFormat(format)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, "links_export."+string(f))

			n, err := a.exportFile(cmd.Context(), path, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d links to %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(transfer.FormatJSON), "json or csv")
	cmd.Flags().StringVarP(&dir, "output-dir", "d", ".", "directory for the backup file")
	return cmd
}

// exportFile writes every link to path, creating parent directories.
func (a *app) exportFile(ctx context.Context, path string, f transfer.Format) (int, error) {
	const op = "cli.exportFile"

	if f != transfer.FormatJSON && f != transfer.FormatCSV {
		return 0, errx.Errorf(op, errx.Validation, "cannot export to %s (allowed: json, csv)", f)
	}
	links, err := a.svc.ListLinks(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errx.E(op, errx.Service, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, errx.E(op, errx.Service, err)
	}
	w := bufio.NewWriter(file)
	if err := writeExport(w, f, links); err != nil {
		_ = file.Close()
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, errx.E(op, errx.Service, err)
	}

	a.log.Info("links exported",
		zap.String(logger.FieldFile, path),
		zap.String(logger.FieldFormat, string(f)),
		zap.Int(logger.FieldCount, len(links)),
	)
	return len(links), nil
}

func writeExport(w *bufio.Writer, f transfer.Format, links []domain.Link) error {
	if err := transfer.Export(w, f, links); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errx.E("cli.export", errx.Service, err)
	}
	return nil
}

func resolveFormat(flag, path string) (transfer.Format, error) {
	if flag != "" {
		return transfer.ParseFormat(flag)
	}
	return transfer.FormatFromPath(path)
}
