package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

// --- Hand-written mocks ---

type mockRepo struct {
	createFn       func(ctx context.Context, link *domain.Link) error
	getByIDFn      func(ctx context.Context, id int64) (*domain.Link, error)
	getByURLFn     func(ctx context.Context, url string) (*domain.Link, error)
	updateFn       func(ctx context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error)
	deleteFn       func(ctx context.Context, id int64) error
	searchFn       func(ctx context.Context, c domain.SearchCriteria) ([]domain.Link, error)
	bulkMarkReadFn func(ctx context.Context, ids []int64, at time.Time) (int64, error)
	countFn        func(ctx context.Context, isRead *bool) (int64, error)
	allFn          func(ctx context.Context) ([]domain.Link, error)
}

func (m *mockRepo) Create(ctx context.Context, link *domain.Link) error {
	return m.createFn(ctx, link)
}
func (m *mockRepo) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	return m.getByIDFn(ctx, id)
}
func (m *mockRepo) GetByURL(ctx context.Context, url string) (*domain.Link, error) {
	return m.getByURLFn(ctx, url)
}
func (m *mockRepo) Update(ctx context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error) {
	return m.updateFn(ctx, id, patch)
}
func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}
func (m *mockRepo) Search(ctx context.Context, c domain.SearchCriteria) ([]domain.Link, error) {
	return m.searchFn(ctx, c)
}
func (m *mockRepo) BulkMarkRead(ctx context.Context, ids []int64, at time.Time) (int64, error) {
	return m.bulkMarkReadFn(ctx, ids, at)
}
func (m *mockRepo) Count(ctx context.Context, isRead *bool) (int64, error) {
	return m.countFn(ctx, isRead)
}
func (m *mockRepo) All(ctx context.Context) ([]domain.Link, error) {
	return m.allFn(ctx)
}

type countingSessions struct {
	calls int
}

func (c *countingSessions) WithSession(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newMockService(repo *mockRepo) *LinkService {
	return NewLinkService(repo, nil, nil, Options{Now: func() time.Time { return fixedNow }})
}

func TestAddLink(t *testing.T) {
	var created *domain.Link
	repo := &mockRepo{
		createFn: func(_ context.Context, link *domain.Link) error {
			link.ID = 7
			created = link
			return nil
		},
	}
	svc := newMockService(repo)

	got, err := svc.AddLink(context.Background(), ports.AddLinkInput{
		URL:         "  https://News.Example.com/item?id=1 ",
		Description: " hello ",
		Tags:        []string{" news ", "", "tech", "news"},
	})
	require.NoError(t, err)
	require.Same(t, created, got)

	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "https://News.Example.com/item?id=1", got.URL)
	assert.Equal(t, "news.example.com", got.Domain)
	assert.Equal(t, "hello", got.Description)
	assert.Equal(t, domain.Tags{"news", "tech"}, got.Tags)
	assert.False(t, got.IsRead)
	assert.Equal(t, fixedNow, got.CreatedAt)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestAddLinkValidation(t *testing.T) {
	repo := &mockRepo{
		createFn: func(context.Context, *domain.Link) error {
			t.Fatal("create must not be reached")
			return nil
		},
	}
	svc := newMockService(repo)

	tests := []struct {
		name string
		in   ports.AddLinkInput
	}{
		{name: "empty url", in: ports.AddLinkInput{URL: ""}},
		{name: "bad scheme", in: ports.AddLinkInput{URL: "ftp://example.com"}},
		{name: "no dot in host", in: ports.AddLinkInput{URL: "http://localhost/x"}},
		{name: "no host", in: ports.AddLinkInput{URL: "https://"}},
		{name: "comma in tag", in: ports.AddLinkInput{URL: "https://example.com", Tags: []string{"a,b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddLink(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, errx.Validation, errx.KindOf(err))
		})
	}
}

func TestAddLinkCapsTags(t *testing.T) {
	repo := &mockRepo{createFn: func(context.Context, *domain.Link) error { return nil }}
	svc := newMockService(repo)

	tags := []string{strings.Repeat("x", domain.MaxTagLength+1)}
	for i := 0; i < domain.MaxTags+2; i++ {
		tags = append(tags, fmt.Sprintf("t%d", i))
	}

	got, err := svc.AddLink(context.Background(), ports.AddLinkInput{URL: "https://example.com", Tags: tags})
	require.NoError(t, err)
	require.Len(t, got.Tags, domain.MaxTags)
	assert.Equal(t, "t0", got.Tags[0])
	assert.Equal(t, "t9", got.Tags[domain.MaxTags-1])
}

func TestTimestampsUseStoredPrecision(t *testing.T) {
	precise := time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.UTC)
	var bulkAt time.Time
	repo := &mockRepo{
		createFn: func(context.Context, *domain.Link) error { return nil },
		getByIDFn: func(_ context.Context, id int64) (*domain.Link, error) {
			return &domain.Link{ID: id}, nil
		},
		updateFn: func(_ context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error) {
			return &domain.Link{ID: id, UpdatedAt: patch.UpdatedAt}, nil
		},
		bulkMarkReadFn: func(_ context.Context, _ []int64, at time.Time) (int64, error) {
			bulkAt = at
			return 1, nil
		},
	}
	svc := NewLinkService(repo, nil, nil, Options{Now: func() time.Time { return precise }})
	want := time.Date(2024, 5, 1, 9, 30, 0, 123456000, time.UTC)

	added, err := svc.AddLink(context.Background(), ports.AddLinkInput{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, want, added.CreatedAt)
	assert.Equal(t, want, added.UpdatedAt)

	updated, err := svc.MarkAsRead(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, want, updated.UpdatedAt)

	_, err = svc.BulkMarkRead(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Equal(t, want, bulkAt)
}

func TestAddLinkDuplicate(t *testing.T) {
	repo := &mockRepo{
		createFn: func(context.Context, *domain.Link) error {
			return errx.E("repo", errx.AlreadyExists, domain.ErrLinkAlreadyExists)
		},
	}
	svc := newMockService(repo)

	_, err := svc.AddLink(context.Background(), ports.AddLinkInput{URL: "https://example.com"})
	assert.Equal(t, errx.AlreadyExists, errx.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrLinkAlreadyExists)
	assert.Equal(t, "services.LinkService.AddLink", errx.OpOf(err))
}

func TestGetLinkNotFound(t *testing.T) {
	repo := &mockRepo{
		getByIDFn: func(context.Context, int64) (*domain.Link, error) { return nil, nil },
	}
	svc := newMockService(repo)

	_, err := svc.GetLink(context.Background(), 3)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.Equal(t, "link not found: id 3", errx.Message(err))
}

func TestGetLinkRepositoryError(t *testing.T) {
	cause := errors.New("disk I/O error")
	repo := &mockRepo{
		getByIDFn: func(context.Context, int64) (*domain.Link, error) {
			return nil, errx.E("repo", errx.Repository, cause)
		},
	}
	svc := newMockService(repo)

	_, err := svc.GetLink(context.Background(), 1)
	assert.Equal(t, errx.Repository, errx.KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestUpdateLinkRederivesDomain(t *testing.T) {
	current := &domain.Link{ID: 1, URL: "https://old.example.com", Domain: "old.example.com"}
	var gotPatch domain.LinkPatch
	repo := &mockRepo{
		getByIDFn: func(context.Context, int64) (*domain.Link, error) { return current, nil },
		updateFn: func(_ context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error) {
			gotPatch = patch
			return &domain.Link{ID: id, URL: *patch.URL, Domain: *patch.Domain}, nil
		},
	}
	sessions := &countingSessions{}
	svc := NewLinkService(repo, sessions, nil, Options{Now: func() time.Time { return fixedNow }})

	newURL := "https://WWW.New.org/path"
	got, err := svc.UpdateLink(context.Background(), 1, ports.LinkUpdate{URL: &newURL})
	require.NoError(t, err)

	assert.Equal(t, "www.new.org", got.Domain)
	assert.Equal(t, fixedNow, gotPatch.UpdatedAt)
	assert.Nil(t, gotPatch.Description)
	assert.Nil(t, gotPatch.Tags)
	assert.Nil(t, gotPatch.IsRead)
	assert.Equal(t, 1, sessions.calls)
}

func TestUpdateLinkNotFoundBeforeWork(t *testing.T) {
	repo := &mockRepo{
		getByIDFn: func(context.Context, int64) (*domain.Link, error) { return nil, nil },
		updateFn: func(context.Context, int64, domain.LinkPatch) (*domain.Link, error) {
			t.Fatal("update must not be reached")
			return nil, nil
		},
	}
	svc := newMockService(repo)

	desc := "x"
	_, err := svc.UpdateLink(context.Background(), 9, ports.LinkUpdate{Description: &desc})
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestUpdateLinkInvalidURL(t *testing.T) {
	svc := newMockService(&mockRepo{})

	bad := "mailto:someone@example.com"
	_, err := svc.UpdateLink(context.Background(), 1, ports.LinkUpdate{URL: &bad})
	assert.Equal(t, errx.Validation, errx.KindOf(err))
}

func TestUpdateLinkEmptyPatch(t *testing.T) {
	current := &domain.Link{ID: 1, URL: "https://example.com", Domain: "example.com"}
	repo := &mockRepo{
		getByIDFn: func(context.Context, int64) (*domain.Link, error) { return current, nil },
		updateFn: func(context.Context, int64, domain.LinkPatch) (*domain.Link, error) {
			t.Fatal("update must not be reached")
			return nil, nil
		},
	}
	svc := newMockService(repo)

	got, err := svc.UpdateLink(context.Background(), 1, ports.LinkUpdate{})
	require.NoError(t, err)
	assert.Same(t, current, got)
}

func TestMarkAsReadAndUnread(t *testing.T) {
	var reads []bool
	repo := &mockRepo{
		getByIDFn: func(_ context.Context, id int64) (*domain.Link, error) { return &domain.Link{ID: id}, nil },
		updateFn: func(_ context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error) {
			require.NotNil(t, patch.IsRead)
			reads = append(reads, *patch.IsRead)
			return &domain.Link{ID: id, IsRead: *patch.IsRead}, nil
		},
	}
	svc := newMockService(repo)

	l, err := svc.MarkAsRead(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, l.IsRead)

	l, err = svc.MarkAsUnread(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, l.IsRead)

	assert.Equal(t, []bool{true, false}, reads)
}

func TestDeleteLink(t *testing.T) {
	deleted := false
	repo := &mockRepo{
		getByIDFn: func(_ context.Context, id int64) (*domain.Link, error) {
			if deleted {
				return nil, nil
			}
			return &domain.Link{ID: id}, nil
		},
		deleteFn: func(context.Context, int64) error {
			deleted = true
			return nil
		},
	}
	svc := newMockService(repo)

	require.NoError(t, svc.DeleteLink(context.Background(), 4))
	err := svc.DeleteLink(context.Background(), 4)
	assert.Equal(t, errx.NotFound, errx.KindOf(err))
}

func TestBulkMarkRead(t *testing.T) {
	var gotAt time.Time
	repo := &mockRepo{
		bulkMarkReadFn: func(_ context.Context, ids []int64, at time.Time) (int64, error) {
			gotAt = at
			return int64(len(ids) - 1), nil
		},
	}
	svc := newMockService(repo)

	n, err := svc.BulkMarkRead(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, fixedNow, gotAt)

	_, err = svc.BulkMarkRead(context.Background(), []int64{1, 0})
	assert.Equal(t, errx.Validation, errx.KindOf(err))

	n, err = svc.BulkMarkRead(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchLinksStripsBlankCriteria(t *testing.T) {
	var got domain.SearchCriteria
	repo := &mockRepo{
		searchFn: func(_ context.Context, c domain.SearchCriteria) ([]domain.Link, error) {
			got = c
			return []domain.Link{}, nil
		},
	}
	svc := newMockService(repo)

	read := false
	_, err := svc.SearchLinks(context.Background(), ports.SearchInput{
		Query:     " go ",
		URL:       "   ",
		Domain:    " example ",
		Tags:      []string{"", " go ", "  "},
		IsRead:    &read,
		SortBy:    "Domain",
		SortOrder: "asc",
		Limit:     5,
	})
	require.NoError(t, err)

	require.NotNil(t, got.Query)
	assert.Equal(t, "go", *got.Query)
	assert.Nil(t, got.URL)
	require.NotNil(t, got.Domain)
	assert.Equal(t, "example", *got.Domain)
	assert.Nil(t, got.Description)
	assert.Equal(t, []string{"go"}, got.Tags)
	assert.Equal(t, &read, got.IsRead)
	assert.Equal(t, domain.SortByDomain, got.SortBy)
	assert.Equal(t, domain.SortAsc, got.SortOrder)
	assert.Equal(t, 5, got.Limit)
}

func TestSearchLinksRejectsBadSort(t *testing.T) {
	svc := newMockService(&mockRepo{})

	_, err := svc.SearchLinks(context.Background(), ports.SearchInput{SortBy: "nonsense"})
	assert.Equal(t, errx.Validation, errx.KindOf(err))

	_, err = svc.SearchLinks(context.Background(), ports.SearchInput{SortOrder: "up"})
	assert.Equal(t, errx.Validation, errx.KindOf(err))

	_, err = svc.SearchLinks(context.Background(), ports.SearchInput{Limit: -1})
	assert.Equal(t, errx.Validation, errx.KindOf(err))
}

func TestExists(t *testing.T) {
	repo := &mockRepo{
		getByURLFn: func(_ context.Context, url string) (*domain.Link, error) {
			if url == "https://example.com" {
				return &domain.Link{ID: 1, URL: url}, nil
			}
			return nil, nil
		},
	}
	svc := newMockService(repo)

	ok, err := svc.Exists(context.Background(), " https://example.com ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(context.Background(), "https://other.example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetStatistics(t *testing.T) {
	repo := &mockRepo{
		countFn: func(_ context.Context, isRead *bool) (int64, error) {
			if isRead == nil {
				return 3, nil
			}
			require.True(t, *isRead)
			return 2, nil
		},
		allFn: func(context.Context) ([]domain.Link, error) {
			return []domain.Link{
				{Domain: "a.com", IsRead: true},
				{Domain: "b.com"},
				{Domain: "b.com", IsRead: true},
			}, nil
		},
	}
	sessions := &countingSessions{}
	svc := NewLinkService(repo, sessions, nil, Options{TopDomains: 1})

	stats, err := svc.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Read)
	assert.Equal(t, int64(1), stats.Unread)
	assert.Equal(t, []domain.DomainCount{{Domain: "b.com", Count: 2}}, stats.TopDomains)
}

func TestGetStatisticsCountError(t *testing.T) {
	cause := errors.New("disk I/O error")
	repo := &mockRepo{
		countFn: func(context.Context, *bool) (int64, error) {
			return 0, errx.E("repo", errx.Repository, cause)
		},
		allFn: func(context.Context) ([]domain.Link, error) {
			t.Fatal("all must not be reached")
			return nil, nil
		},
	}
	svc := newMockService(repo)

	_, err := svc.GetStatistics(context.Background())
	assert.Equal(t, errx.Repository, errx.KindOf(err))
	assert.ErrorIs(t, err, cause)
}
