package transfer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

const defaultFetchConcurrency = 4

// Failure describes one record that could not be imported.
type Failure struct {
	Index int // 1-based position in the input
	URL   string
	Err   error
}

func (f Failure) String() string {
	return fmt.Sprintf("#%d: %s - %s", f.Index, f.URL, errx.Message(f.Err))
}

type ImportResult struct {
	Total    int
	Added    int
	Fetched  int
	Failures []Failure
}

type ImporterOptions struct {
	// Fetcher fills in missing descriptions. Nil disables fetching.
	Fetcher          ports.DescriptionFetcher
	FetchConcurrency int
	Logger           *zap.Logger
}

// Importer adds parsed records one by one. A bad record is recorded as a
// failure and the batch continues.
type Importer struct {
	svc         ports.LinkService
	fetcher     ports.DescriptionFetcher
	concurrency int
	log         *zap.Logger
}

func NewImporter(svc ports.LinkService, opts ImporterOptions) *Importer {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = defaultFetchConcurrency
	}
	return &Importer{
		svc:         svc,
		fetcher:     opts.Fetcher,
		concurrency: opts.FetchConcurrency,
		log:         logger.OrNop(opts.Logger),
	}
}

// Import stores records and reports what happened to each. It only returns an
// error when ctx is cancelled.
func (im *Importer) Import(ctx context.Context, records []Record) (*ImportResult, error) {
	const op = "transfer.Importer.Import"
	start := time.Now()

	res := &ImportResult{Total: len(records)}
	skip := make([]bool, len(records))

	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, errx.E(op, errx.Service, err)
		}
		records[i].URL = strings.TrimSpace(records[i].URL)
		exists, err := im.svc.Exists(ctx, records[i].URL)
		if err != nil {
			res.fail(i, records[i].URL, err)
			skip[i] = true
			continue
		}
		if exists {
			res.fail(i, records[i].URL, errx.E(op, errx.AlreadyExists,
				fmt.Errorf("%w: %s", domain.ErrLinkAlreadyExists, records[i].URL)))
			skip[i] = true
		}
	}

	descriptions, err := im.fetchMissing(ctx, records, skip)
	if err != nil {
		return nil, errx.E(op, errx.Service, err)
	}

	for i, rec := range records {
		if skip[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errx.E(op, errx.Service, err)
		}

		desc := rec.Description
		if desc == "" && descriptions[i] != "" {
			desc = descriptions[i]
			res.Fetched++
		}

		_, err := im.svc.AddLink(ctx, ports.AddLinkInput{
			URL:         rec.URL,
			Description: desc,
			Tags:        rec.Tags,
			IsRead:      rec.IsRead,
		})
		if err != nil {
			res.fail(i, rec.URL, err)
			continue
		}
		res.Added++
	}

	sort.SliceStable(res.Failures, func(a, b int) bool {
		return res.Failures[a].Index < res.Failures[b].Index
	})
	for _, f := range res.Failures {
		im.log.Warn("import record failed",
			zap.Int(logger.FieldIndex, f.Index),
			zap.String(logger.FieldURL, f.URL),
			zap.String(logger.FieldKind, errx.KindOf(f.Err).String()),
			zap.Error(f.Err),
		)
	}
	im.log.Info("import finished",
		zap.Int("total", res.Total),
		zap.Int("added", res.Added),
		zap.Int("failed", len(res.Failures)),
		zap.Duration(logger.FieldDuration, time.Since(start)),
	)
	return res, nil
}

// fetchMissing looks up descriptions for records that lack one, at most
// im.concurrency at a time. The result is indexed like records.
func (im *Importer) fetchMissing(ctx context.Context, records []Record, skip []bool) ([]string, error) {
	out := make([]string, len(records))
	if im.fetcher == nil {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i, rec := range records {
		if skip[i] || rec.Description != "" || domain.ValidateURL(rec.URL) != nil {
			continue
		}
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = im.fetcher.Fetch(gctx, rec.URL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ImportResult) fail(i int, url string, err error) {
	r.Failures = append(r.Failures, Failure{Index: i + 1, URL: url, Err: err})
}
