package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wadjakorntonsri/go-link-store/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newSQLiteService(t *testing.T) *LinkService {
	t.Helper()
	m, err := sqlite.Open(context.Background(), sqlite.Options{
		URL:    filepath.Join(t.TempDir(), "links.db"),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	// Sub-microsecond digits are dropped on the way into storage.
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 987654321, time.UTC)}
	return NewLinkService(sqlite.NewSQLiteRepository(m, nil), m, zap.NewNop(), Options{Now: clock.now})
}

func TestLinkLifecycleSQLite(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	link, err := svc.AddLink(ctx, ports.AddLinkInput{
		URL:  "https://example.com/a",
		Tags: []string{"news", "tech"},
	})
	require.NoError(t, err)

	stored, err := svc.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.True(t, link.CreatedAt.Equal(stored.CreatedAt))
	assert.True(t, link.UpdatedAt.Equal(stored.UpdatedAt))

	_, err = svc.AddLink(ctx, ports.AddLinkInput{URL: "https://example.com/a"})
	assert.Equal(t, errx.AlreadyExists, errx.KindOf(err))

	found, err := svc.SearchLinks(ctx, ports.SearchInput{Domain: "example", Tags: []string{"tech"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, link.ID, found[0].ID)

	none, err := svc.SearchLinks(ctx, ports.SearchInput{Tags: []string{"sports"}})
	require.NoError(t, err)
	assert.Empty(t, none)

	read, err := svc.MarkAsRead(ctx, link.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.True(t, read.UpdatedAt.After(read.CreatedAt))
	assert.Equal(t, link.Tags, read.Tags)

	reread, err := svc.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.True(t, read.UpdatedAt.Equal(reread.UpdatedAt))

	newURL := "https://blog.other.org/post"
	moved, err := svc.UpdateLink(ctx, link.ID, ports.LinkUpdate{URL: &newURL})
	require.NoError(t, err)
	assert.Equal(t, "blog.other.org", moved.Domain)
	assert.True(t, moved.IsRead)

	exists, err := svc.Exists(ctx, newURL)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.DeleteLink(ctx, link.ID))
	_, err = svc.GetLink(ctx, link.ID)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	err = svc.DeleteLink(ctx, link.ID)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestBulkMarkReadSQLite(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	a, err := svc.AddLink(ctx, ports.AddLinkInput{URL: "https://a.example.com"})
	require.NoError(t, err)
	c, err := svc.AddLink(ctx, ports.AddLinkInput{URL: "https://c.example.com"})
	require.NoError(t, err)

	n, err := svc.BulkMarkRead(ctx, []int64{a.ID, 424242, c.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, id := range []int64{a.ID, c.ID} {
		l, err := svc.GetLink(ctx, id)
		require.NoError(t, err)
		assert.True(t, l.IsRead)
		assert.True(t, l.UpdatedAt.After(l.CreatedAt))
	}

	stats, err := svc.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Read)
	assert.Zero(t, stats.Unread)
}
