package domain

import (
	"strings"

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
)

type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByUpdatedAt   SortField = "updated_at"
	SortByDomain      SortField = "domain"
	SortByURL         SortField = "url"
	SortByDescription SortField = "description"
)

type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

var sortFields = map[SortField]struct{}{
	SortByCreatedAt:   {},
	SortByUpdatedAt:   {},
	SortByDomain:      {},
	SortByURL:         {},
	SortByDescription: {},
}

// SearchCriteria is the filter set a repository search understands.
// A nil pointer or empty Tags means the filter was not requested.
type SearchCriteria struct {
	// Query is a free-text match against url, description or any tag.
	Query       *string
	URL         *string
	Domain      *string
	Description *string
	// Tags uses AND semantics: every entry must match one of the link's tags.
	Tags      []string
	IsRead    *bool
	SortBy    SortField
	SortOrder SortOrder
	// Limit of 0 means no limit.
	Limit  int
	Offset int
}

// ParseSortField checks s against the sortable columns. Empty means created_at.
func ParseSortField(s string) (SortField, error) {
	if s == "" {
		return SortByCreatedAt, nil
	}
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sortFields[f]; !ok {
		return "", errx.Errorf("domain.ParseSortField", errx.Validation,
			"invalid sort field %q (allowed: created_at, updated_at, domain, url, description)", s)
	}
	return f, nil
}

// ParseSortOrder accepts ASC or DESC in any case. Empty means DESC.
func ParseSortOrder(s string) (SortOrder, error) {
	if s == "" {
		return SortDesc, nil
	}
	switch o := SortOrder(strings.ToUpper(strings.TrimSpace(s))); o {
	case SortAsc, SortDesc:
		return o, nil
	default:
		return "", errx.Errorf("domain.ParseSortOrder", errx.Validation, "invalid sort order %q (allowed: ASC, DESC)", s)
	}
}

// Validate checks sorting and paging parameters and fills in defaults.
func (c *SearchCriteria) Validate() error {
	const op = "domain.SearchCriteria.Validate"

	field, err := ParseSortField(string(c.SortBy))
	if err != nil {
		return err
	}
	order, err := ParseSortOrder(string(c.SortOrder))
	if err != nil {
		return err
	}
	if c.Limit < 0 {
		return errx.Errorf(op, errx.Validation, "limit must not be negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return errx.Errorf(op, errx.Validation, "offset must not be negative, got %d", c.Offset)
	}
	for _, t := range c.Tags {
		if strings.TrimSpace(t) == "" {
			return errx.Errorf(op, errx.Validation, "tag filter must not be blank")
		}
	}

	c.SortBy = field
	c.SortOrder = order
	return nil
}
