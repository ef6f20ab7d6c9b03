package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
	"github.com/wadjakorntonsri/go-link-store/pkg/validation"
)

const DefaultTopDomains = 10

type Options struct {
	// TopDomains is how many domains GetStatistics ranks. Zero means DefaultTopDomains.
	TopDomains int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type LinkService struct {
	repo       ports.LinkRepository
	sessions   ports.SessionManager
	log        *zap.Logger
	topDomains int
	now        func() time.Time
}

// NewLinkService wires the service. A nil sessions runs every operation
// directly against repo.
func NewLinkService(repo ports.LinkRepository, sessions ports.SessionManager, log *zap.Logger, opts Options) *LinkService {
	if sessions == nil {
		sessions = directSessions{}
	}
	if opts.TopDomains <= 0 {
		opts.TopDomains = DefaultTopDomains
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LinkService{
		repo:       repo,
		sessions:   sessions,
		log:        logger.OrNop(log),
		topDomains: opts.TopDomains,
		now:        opts.Now,
	}
}

func (s *LinkService) AddLink(ctx context.Context, in ports.AddLinkInput) (*domain.Link, error) {
	const op = "services.LinkService.AddLink"

	in.URL = strings.TrimSpace(in.URL)
	tags, err := domain.NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	in.Tags = tags

	if err := validation.Struct(in); err != nil {
		return nil, errx.E(op, errx.Validation, err)
	}
	host, err := domain.ExtractDomain(in.URL)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	link := &domain.Link{
		URL:         in.URL,
		Domain:      host,
		Description: strings.TrimSpace(in.Description),
		Tags:        tags,
		IsRead:      in.IsRead,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, rewrap(op, err)
	}

	s.log.Info("link added",
		zap.Int64(logger.FieldLinkID, link.ID),
		zap.String(logger.FieldURL, link.URL),
		zap.String(logger.FieldDomain, link.Domain),
	)
	return link, nil
}

func (s *LinkService) GetLink(ctx context.Context, id int64) (*domain.Link, error) {
	const op = "services.LinkService.GetLink"

	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, rewrap(op, err)
	}
	if link == nil {
		return nil, notFound(op, id)
	}
	return link, nil
}

// UpdateLink applies the non-nil fields of upd. A changed URL re-derives the
// domain. An update that sets nothing returns the link unchanged.
func (s *LinkService) UpdateLink(ctx context.Context, id int64, upd ports.LinkUpdate) (*domain.Link, error) {
	const op = "services.LinkService.UpdateLink"

	patch, err := s.buildPatch(upd)
	if err != nil {
		return nil, err
	}

	var updated *domain.Link
	err = s.sessions.WithSession(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound(op, id)
		}
		if patch.IsEmpty() {
			updated = current
			return nil
		}

		patch.UpdatedAt = s.stamp()
		updated, err = s.repo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, rewrap(op, err)
	}

	s.log.Debug("link updated", zap.Int64(logger.FieldLinkID, id))
	return updated, nil
}

func (s *LinkService) buildPatch(upd ports.LinkUpdate) (domain.LinkPatch, error) {
	var patch domain.LinkPatch

	if upd.URL != nil {
		u := strings.TrimSpace(*upd.URL)
		if err := domain.ValidateURL(u); err != nil {
			return patch, err
		}
		host, err := domain.ExtractDomain(u)
		if err != nil {
			return patch, err
		}
		patch.URL = &u
		patch.Domain = &host
	}
	if upd.Description != nil {
		d := strings.TrimSpace(*upd.Description)
		patch.Description = &d
	}
	if upd.Tags != nil {
		tags, err := domain.NormalizeTags(*upd.Tags)
		if err != nil {
			return patch, err
		}
		patch.Tags = &tags
	}
	patch.IsRead = upd.IsRead
	return patch, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, id int64) error {
	const op = "services.LinkService.DeleteLink"

	err := s.sessions.WithSession(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound(op, id)
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return rewrap(op, err)
	}

	s.log.Info("link deleted", zap.Int64(logger.FieldLinkID, id))
	return nil
}

func (s *LinkService) MarkAsRead(ctx context.Context, id int64) (*domain.Link, error) {
	read := true
	return s.UpdateLink(ctx, id, ports.LinkUpdate{IsRead: &read})
}

func (s *LinkService) MarkAsUnread(ctx context.Context, id int64) (*domain.Link, error) {
	read := false
	return s.UpdateLink(ctx, id, ports.LinkUpdate{IsRead: &read})
}

// BulkMarkRead marks the given links as read and returns how many changed.
// Ids that do not exist are skipped.
func (s *LinkService) BulkMarkRead(ctx context.Context, ids []int64) (int64, error) {
	const op = "services.LinkService.BulkMarkRead"

	for _, id := range ids {
		if id <= 0 {
			return 0, errx.Errorf(op, errx.Validation, "invalid link id %d", id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.repo.BulkMarkRead(ctx, ids, s.stamp())
	if err != nil {
		return 0, rewrap(op, err)
	}

	s.log.Info("links marked read", zap.Int("requested", len(ids)), zap.Int64(logger.FieldCount, n))
	return n, nil
}

// SearchLinks drops blank criteria before handing the rest to the repository.
func (s *LinkService) SearchLinks(ctx context.Context, in ports.SearchInput) ([]domain.Link, error) {
	const op = "services.LinkService.SearchLinks"

	criteria := domain.SearchCriteria{
		Query:       nonBlank(in.Query),
		URL:         nonBlank(in.URL),
		Domain:      nonBlank(in.Domain),
		Description: nonBlank(in.Description),
		IsRead:      in.IsRead,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			criteria.Tags = append(criteria.Tags, t)
		}
	}

	var err error
	if criteria.SortBy, err = domain.ParseSortField(in.SortBy); err != nil {
		return nil, err
	}
	if criteria.SortOrder, err = domain.ParseSortOrder(in.SortOrder); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	links, err := s.repo.Search(ctx, criteria)
	if err != nil {
		return nil, rewrap(op, err)
	}
	return links, nil
}

// ListLinks returns every link in first-seen order.
func (s *LinkService) ListLinks(ctx context.Context) ([]domain.Link, error) {
	const op = "services.LinkService.ListLinks"

	links, err := s.repo.All(ctx)
	if err != nil {
		return nil, rewrap(op, err)
	}
	return links, nil
}

func (s *LinkService) Exists(ctx context.Context, url string) (bool, error) {
	const op = "services.LinkService.Exists"

	link, err := s.repo.GetByURL(ctx, strings.TrimSpace(url))
	if err != nil {
		return false, rewrap(op, err)
	}
	return link != nil, nil
}

// GetStatistics counts links by read status and ranks the most common domains.
func (s *LinkService) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	const op = "services.LinkService.GetStatistics"

	var (
		total, read int64
		links       []domain.Link
	)
	err := s.sessions.WithSession(ctx, func(ctx context.Context) error {
		var err error
		if total, err = s.repo.Count(ctx, nil); err != nil {
			return err
		}
		isRead := true
		if read, err = s.repo.Count(ctx, &isRead); err != nil {
			return err
		}
		links, err = s.repo.All(ctx)
		return err
	})
	if err != nil {
		return nil, rewrap(op, err)
	}

	stats := ComputeStatistics(links, s.topDomains)
	stats.Total = total
	stats.Read = read
	stats.Unread = total - read
	return &stats, nil
}

// stamp is the current time at the precision timestamps are stored with.
func (s *LinkService) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func nonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func notFound(op string, id int64) error {
	return errx.E(op, errx.NotFound, fmt.Errorf("%w: id %d", domain.ErrLinkNotFound, id))
}

// rewrap adds op to err while keeping its kind. Errors without a kind are
// reported as service errors.
func rewrap(op string, err error) error {
	kind := errx.KindOf(err)
	if kind == errx.Unknown {
		kind = errx.Service
	}
	return errx.E(op, kind, err)
}

type directSessions struct{}

func (directSessions) WithSession(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Ensure interface compliance
var _ ports.LinkService = (*LinkService)(nil)
