package domain

import (
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/go-link-store/pkg/errx"
	"github.com/wadjakorntonsri/go-link-store/pkg/validation"
)

const MaxURLLength = 2048

// ValidateURL checks that v is a non-empty http(s) URL.
func ValidateURL(v string) error {
	const op = "domain.ValidateURL"

	if err := validation.Var(v, "required,http_prefix,max=2048"); err != nil {
		return errx.E(op, errx.Validation, err)
	}
	return nil
}

// ValidateDomain checks that v is non-blank and dotted, and returns it
// trimmed and lower-cased.
func ValidateDomain(v string) (string, error) {
	const op = "domain.ValidateDomain"

	if err := validation.Var(v, "notblank,contains=."); err != nil {
		return "", errx.E(op, errx.Validation, err)
	}
	return strings.ToLower(strings.TrimSpace(v)), nil
}

// ExtractDomain returns the validated host of rawURL.
func ExtractDomain(rawURL string) (string, error) {
	const op = "domain.ExtractDomain"

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errx.Errorf(op, errx.Validation, "invalid url %q: %v", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", errx.Errorf(op, errx.Validation, "url %q has no host", rawURL)
	}
	return ValidateDomain(host)
}
