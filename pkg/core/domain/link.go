package domain

import "time"

// TimeLayout is the fixed-width ISO-8601 form timestamps are stored in, so
// text ordering matches chronological ordering.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Link represents a bookmarked URL
type Link struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Description string    `json:"description"`
	Tags        Tags      `json:"tag"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LinkPatch carries the columns a repository update should write.
// Nil fields are left untouched.
type LinkPatch struct {
	URL         *string
	Domain      *string
	Description *string
	Tags        *Tags
	IsRead      *bool
	UpdatedAt   time.Time
}

// IsEmpty reports whether the patch changes no user-visible field.
func (p LinkPatch) IsEmpty() bool {
	return p.URL == nil && p.Domain == nil && p.Description == nil && p.Tags == nil && p.IsRead == nil
}

// Statistics summarises the whole link set.
type Statistics struct {
	Total      int64         `json:"total"`
	Read       int64         `json:"read"`
	Unread     int64         `json:"unread"`
	TopDomains []DomainCount `json:"top_domains"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// FormatTime renders t in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout as well as any RFC 3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
