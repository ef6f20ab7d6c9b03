package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

const linkColumns = `id, url, domain, description, tag, is_read, created_at, updated_at`

// bulkChunk keeps IN lists well below SQLite's bound-parameter limit.
const bulkChunk = 500

type SQLiteRepository struct {
	m   *Manager
	log *zap.Logger
}

func NewSQLiteRepository(m *Manager, log *zap.Logger) *SQLiteRepository {
	return &SQLiteRepository{m: m, log: logger.OrNop(log)}
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	const op = "sqlite.Repository.Create"

	return r.m.WithSession(ctx, func(ctx context.Context) error {
		existing, err := r.GetByURL(ctx, link.URL)
		if err != nil {
			return err
		}
		if existing != nil {
			return alreadyExists(op, link.URL)
		}

		tagsJSON, err := encodeTags(link.Tags)
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}

		query := `INSERT INTO links (url, domain, description, tag, is_read, created_at, updated_at)
				  VALUES (?, ?, ?, ?, ?, ?, ?)`
		res, err := r.m.conn(ctx).ExecContext(ctx, query,
			link.URL, link.Domain, link.Description, tagsJSON, link.IsRead,
			domain.FormatTime(link.CreatedAt), domain.FormatTime(link.UpdatedAt),
		)
		if err != nil {
			return classify(op, err, link.URL)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		link.ID = id

		r.log.Debug("link inserted", zap.Int64(logger.FieldLinkID, id), zap.String(logger.FieldURL, link.URL))
		return nil
	})
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	const op = "sqlite.Repository.GetByID"

	var link *domain.Link
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		query := `SELECT ` + linkColumns + ` FROM links WHERE id = ?`
		l, err := scanLink(r.m.conn(ctx).QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		link = l
		return nil
	})
	return link, err
}

func (r *SQLiteRepository) GetByURL(ctx context.Context, url string) (*domain.Link, error) {
	const op = "sqlite.Repository.GetByURL"

	var link *domain.Link
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		query := `SELECT ` + linkColumns + ` FROM links WHERE url = ?`
		l, err := scanLink(r.m.conn(ctx).QueryRowContext(ctx, query, url))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		link = l
		return nil
	})
	return link, err
}

// Update writes the non-nil fields of patch plus updated_at.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error) {
	const op = "sqlite.Repository.Update"

	var updated *domain.Link
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound(op, id)
		}

		if patch.URL != nil && *patch.URL != current.URL {
			other, err := r.GetByURL(ctx, *patch.URL)
			if err != nil {
				return err
			}
			if other != nil {
				return alreadyExists(op, *patch.URL)
			}
		}

		sets := make([]string, 0, 6)
		args := make([]any, 0, 7)
		if patch.URL != nil {
			sets = append(sets, "url = ?")
			args = append(args, *patch.URL)
		}
		if patch.Domain != nil {
			sets = append(sets, "domain = ?")
			args = append(args, *patch.Domain)
		}
		if patch.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *patch.Description)
		}
		if patch.Tags != nil {
			tagsJSON, err := encodeTags(*patch.Tags)
			if err != nil {
				return errx.E(op, errx.Repository, err)
			}
			sets = append(sets, "tag = ?")
			args = append(args, tagsJSON)
		}
		if patch.IsRead != nil {
			sets = append(sets, "is_read = ?")
			args = append(args, *patch.IsRead)
		}

		at := patch.UpdatedAt
		if at.IsZero() {
			at = time.Now()
		}
		if at.Before(current.CreatedAt) {
			at = current.CreatedAt
		}
		sets = append(sets, "updated_at = ?")
		args = append(args, domain.FormatTime(at), id)

		query := `UPDATE links SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		if _, err := r.m.conn(ctx).ExecContext(ctx, query, args...); err != nil {
			url := current.URL
			if patch.URL != nil {
				url = *patch.URL
			}
			return classify(op, err, url)
		}

		updated, err = r.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	const op = "sqlite.Repository.Delete"

	return r.m.WithSession(ctx, func(ctx context.Context) error {
		res, err := r.m.conn(ctx).ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		if n == 0 {
			return notFound(op, id)
		}
		return nil
	})
}

func (r *SQLiteRepository) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Link, error) {
	const op = "sqlite.Repository.Search"

	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	query, args := buildSearch(criteria)

	var links []domain.Link
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		var err error
		links, err = r.queryLinks(ctx, query, args...)
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		return nil
	})
	return links, err
}

// BulkMarkRead marks every existing id as read in a single session. Unknown
// ids are skipped; the result counts rows actually updated.
func (r *SQLiteRepository) BulkMarkRead(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	const op = "sqlite.Repository.BulkMarkRead"

	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	stamp := domain.FormatTime(at)

	var total int64
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		for start := 0; start < len(ids); start += bulkChunk {
			end := min(start+bulkChunk, len(ids))
			chunk := ids[start:end]

			args := make([]any, 0, len(chunk)+1)
			args = append(args, stamp)
			for _, id := range chunk {
				args = append(args, id)
			}

			// MAX keeps updated_at from moving behind created_at.
			query := `UPDATE links SET is_read = 1, updated_at = MAX(created_at, ?)
					  WHERE id IN (` + placeholders(len(chunk)) + `)`
			res, err := r.m.conn(ctx).ExecContext(ctx, query, args...)
			if err != nil {
				return errx.E(op, errx.Repository, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errx.E(op, errx.Repository, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Debug("bulk mark read", zap.Int("requested", len(ids)), zap.Int64(logger.FieldCount, total))
	return total, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, isRead *bool) (int64, error) {
	const op = "sqlite.Repository.Count"

	query := `SELECT COUNT(*) FROM links`
	args := []any{}
	if isRead != nil {
		query += ` WHERE is_read = ?`
		args = append(args, *isRead)
	}

	var count int64
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		if err := r.m.conn(ctx).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return errx.E(op, errx.Repository, err)
		}
		return nil
	})
	return count, err
}

// All returns every link in insertion order.
func (r *SQLiteRepository) All(ctx context.Context) ([]domain.Link, error) {
	const op = "sqlite.Repository.All"

	var links []domain.Link
	err := r.m.WithSession(ctx, func(ctx context.Context) error {
		var err error
		links, err = r.queryLinks(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id ASC`)
		if err != nil {
			return errx.E(op, errx.Repository, err)
		}
		return nil
	})
	return links, err
}

func (r *SQLiteRepository) queryLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := r.m.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []domain.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(s rowScanner) (*domain.Link, error) {
	var l domain.Link
	var tagsJSON, createdAt, updatedAt string

	if err := s.Scan(&l.ID, &l.URL, &l.Domain, &l.Description, &tagsJSON, &l.IsRead, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	tags, err := decodeTags(tagsJSON)
	if err != nil {
		return nil, fmt.Errorf("link %d: decode tags: %w", l.ID, err)
	}
	l.Tags = tags

	if l.CreatedAt, err = domain.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("link %d: created_at: %w", l.ID, err)
	}
	if l.UpdatedAt, err = domain.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("link %d: updated_at: %w", l.ID, err)
	}
	return &l, nil
}

// Tags are stored as a JSON array so json_each can match individual entries.
func encodeTags(tags domain.Tags) (string, error) {
	if tags == nil {
		tags = domain.Tags{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTags(raw string) (domain.Tags, error) {
	tags := domain.Tags{}
	if strings.TrimSpace(raw) == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func classify(op string, err error, url string) error {
	if isUniqueViolation(err) {
		return alreadyExists(op, url)
	}
	return errx.E(op, errx.Repository, err)
}

func alreadyExists(op, url string) error {
	return errx.E(op, errx.AlreadyExists, fmt.Errorf("%w: %s", domain.ErrLinkAlreadyExists, url))
}

func notFound(op string, id int64) error {
	return errx.E(op, errx.NotFound, fmt.Errorf("%w: id %d", domain.ErrLinkNotFound, id))
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Ensure interface compliance
var _ ports.LinkRepository = (*SQLiteRepository)(nil)
