package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
)

const schema = `
	CREATE TABLE links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL CHECK (length(trim(domain)) > 0),
		description TEXT NOT NULL DEFAULT '',
		tag TEXT NOT NULL DEFAULT '[]',
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (created_at <= updated_at)
	);
	CREATE INDEX IF NOT EXISTS idx_links_domain ON links(domain);
	CREATE INDEX IF NOT EXISTS idx_links_tag ON links(tag);
	CREATE INDEX IF NOT EXISTS idx_links_is_read ON links(is_read);
	CREATE INDEX IF NOT EXISTS idx_links_created_at ON links(created_at);
	CREATE INDEX IF NOT EXISTS idx_links_domain_is_read ON links(domain, is_read);
	CREATE INDEX IF NOT EXISTS idx_links_tag_is_read ON links(tag, is_read);
	`

// migrate creates the links table and its indexes when the table is missing.
// An existing table is left alone. It reports whether anything was created.
// The DDL runs in one transaction so a failed init leaves no partial schema.
func (m *Manager) migrate(ctx context.Context) (created bool, err error) {
	const op = "sqlite.Manager.migrate"

	err = m.WithSession(ctx, func(ctx context.Context) error {
		q := m.conn(ctx)

		var n int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'links'`).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			m.log.Debug("schema already present, skipping init")
			return nil
		}

		if _, err := q.ExecContext(ctx, schema); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, errx.E(op, errx.Repository, err)
	}
	if created {
		m.log.Info("schema initialized", zap.String("table", "links"))
	}
	return created, nil
}
