// Package metadata fetches page descriptions used to pre-fill links on import.
package metadata

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/singleflight"

	"github.com/wadjakorntonsri/go-link-store/pkg/logger"
	"github.com/wadjakorntonsri/go-link-store/pkg/ports"
)

// maxBody caps how much of a page is read; descriptions live in <head>.
const maxBody = 1 << 20

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Logger    *zap.Logger
}

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *zap.Logger
	sf        *singleflight.Group
}

func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: opts.UserAgent,
		log:       logger.OrNop(opts.Logger),
		sf:        &singleflight.Group{},
	}
}

// Fetch returns the page's meta description, falling back to og:description
// and then the title. Any failure yields "". Concurrent calls for the same
// url share one request.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) string {
	result, _, _ := f.sf.Do(url, func() (interface{}, error) {
		return f.fetch(ctx, url), nil
	})
	return result.(string)
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.log.Debug("build request", zap.String(logger.FieldURL, url), zap.Error(err))
		return ""
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug("fetch failed", zap.String(logger.FieldURL, url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.log.Debug("fetch status", zap.String(logger.FieldURL, url), zap.Int("status", resp.StatusCode))
		return ""
	}

	desc, err := Describe(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		f.log.Debug("parse failed", zap.String(logger.FieldURL, url), zap.Error(err))
		return ""
	}
	return desc
}

// Describe extracts a description from an HTML document.
func Describe(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var meta, og, title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				name := strings.ToLower(attr(n, "name"))
				prop := strings.ToLower(attr(n, "property"))
				content := strings.TrimSpace(attr(n, "content"))
				switch {
				case name == "description" && meta == "":
					meta = content
				case prop == "og:description" && og == "":
					og = content
				}
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, s := range []string{meta, og, title} {
		if s != "" {
			return collapseSpace(s), nil
		}
	}
	return "", nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ ports.DescriptionFetcher = (*HTTPFetcher)(nil)
