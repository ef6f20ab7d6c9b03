package sqlite

import (
	"fmt"
	"strings"

	"github.com/wadjakorntonsri/go-link-store/pkg/core/domain"
)

const (
	likeClause = " LIKE ? ESCAPE '\\'"
	tagClause  = "EXISTS (SELECT 1 FROM json_each(links.tag) WHERE json_each.value" + likeClause + ")"
)

// buildSearch turns validated criteria into a SELECT with its arguments.
// Text filters are substring matches. LIKE ignores ASCII case and compares
// every other character as stored.
func buildSearch(c domain.SearchCriteria) (string, []any) {
	var (
		where []string
		args  []any
	)

	if c.Query != nil {
		p := likePattern(*c.Query)
		where = append(where, "(url"+likeClause+" OR description"+likeClause+" OR "+tagClause+")")
		args = append(args, p, p, p)
	}

	like := func(column string, value *string) {
		if value == nil {
			return
		}
		where = append(where, column+likeClause)
		args = append(args, likePattern(*value))
	}
	like("url", c.URL)
	like("domain", c.Domain)
	like("description", c.Description)

	for _, t := range c.Tags {
		where = append(where, tagClause)
		args = append(args, likePattern(t))
	}

	if c.IsRead != nil {
		where = append(where, "is_read = ?")
		args = append(args, *c.IsRead)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + linkColumns + " FROM links")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	// SortBy and SortOrder come from a closed set after Validate.
	fmt.Fprintf(&sb, " ORDER BY %s %s, id %s", c.SortBy, c.SortOrder, c.SortOrder)

	switch {
	case c.Limit > 0:
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, c.Limit, c.Offset)
	case c.Offset > 0:
		sb.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, c.Offset)
	}

	return sb.String(), args
}

func likePattern(s string) string {
	return "%" + escapeLike(strings.TrimSpace(s)) + "%"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
