package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
)

const (
	MaxTags      = 10
	MaxTagLength = 50

	tagSeparator = ","
)

// Tags is an ordered set of labels. Order is preserved and duplicates are
// collapsed by NormalizeTags.
type Tags []string

// NormalizeTags trims every tag and drops empty ones and duplicates. Tags
// longer than MaxTagLength are dropped and only the first MaxTags are kept.
// A tag containing a comma is rejected since the comma joins tags in exports.
func NormalizeTags(raw []string) (Tags, error) {
	const op = "domain.NormalizeTags"

	out := make(Tags, 0, min(len(raw), MaxTags))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || utf8.RuneCountInString(t) > MaxTagLength {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		if strings.Contains(t, tagSeparator) {
			return nil, errx.Errorf(op, errx.Validation, "tag %q must not contain %q", t, tagSeparator)
		}
		if len(out) == MaxTags {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// ParseTags splits a comma-joined tag string and normalises the result.
func ParseTags(s string) (Tags, error) {
	if strings.TrimSpace(s) == "" {
		return Tags{}, nil
	}
	return NormalizeTags(strings.Split(s, tagSeparator))
}

// String joins the tags with commas.
func (t Tags) String() string {
	return strings.Join(t, tagSeparator)
}

// DomainTags derives default tags from the labels of a domain,
// e.g. "news.example.com" -> [news example com].
func DomainTags(domain string) Tags {
	labels := strings.Split(strings.TrimPrefix(domain, "www."), ".")
	tags, err := NormalizeTags(labels)
	if err != nil {
		return Tags{}
	}
	return tags
}
