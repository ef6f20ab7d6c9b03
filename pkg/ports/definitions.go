package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
)

// SessionManager hands out scoped transactions. fn runs with a context that
// carries the session; nested calls with that context reuse it.
type SessionManager interface {
	WithSession(ctx context.Context, fn func(ctx context.Context) error) error
}

// LinkRepository defines storage operations for links.
// Lookups return nil, nil when nothing matches.
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByID(ctx context.Context, id int64) (*domain.Link, error)
	GetByURL(ctx context.Context, url string) (*domain.Link, error)
	Update(ctx context.Context, id int64, patch domain.LinkPatch) (*domain.Link, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Link, error)
	BulkMarkRead(ctx context.Context, ids []int64, at time.Time) (int64, error)
	Count(ctx context.Context, isRead *bool) (int64, error)
	All(ctx context.Context) ([]domain.Link, error) // first-seen (id) order
}

// AddLinkInput is what callers supply to create a link.
type AddLinkInput struct {
	URL         string   `json:"url" validate:"required,http_prefix,max=2048"`
	Description string   `json:"description"`
	Tags        []string `json:"tag" validate:"max=10,dive,max=50,excludes=0x2C"`
	IsRead      bool     `json:"is_read"`
}

// LinkUpdate is a partial update; nil fields are left unchanged.
type LinkUpdate struct {
	URL         *string
	Description *string
	Tags        *[]string
	IsRead      *bool
}

// SearchInput is the caller-facing search request. Blank strings are treated
// as "not requested".
type SearchInput struct {
	// Query matches url, description or any tag.
	Query       string
	URL         string
	Domain      string
	Description string
	Tags        []string
	IsRead      *bool
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

// LinkService defines the business logic operations
type LinkService interface {
	AddLink(ctx context.Context, in AddLinkInput) (*domain.Link, error)
	GetLink(ctx context.Context, id int64) (*domain.Link, error)
	UpdateLink(ctx context.Context, id int64, upd LinkUpdate) (*domain.Link, error)
	DeleteLink(ctx context.Context, id int64) error
	MarkAsRead(ctx context.Context, id int64) (*domain.Link, error)
	MarkAsUnread(ctx context.Context, id int64) (*domain.Link, error)
	BulkMarkRead(ctx context.Context, ids []int64) (int64, error)
	SearchLinks(ctx context.Context, in SearchInput) ([]domain.Link, error)
	ListLinks(ctx context.Context) ([]domain.Link, error)
	Exists(ctx context.Context, url string) (bool, error)
	GetStatistics(ctx context.Context) (*domain.Statistics, error)
}

// DescriptionFetcher returns a best-effort page description, "" on failure.
type DescriptionFetcher interface {
	Fetch(ctx context.Context, url string) string
}
