// Package article extracts the lead image of a web article so a link-only
// post can go out as a photo.
package article

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxBytes = 2 << 20
)

// ErrNoImage is returned when the page has no usable image.
var ErrNoImage = errors.New("no lead image")

// Fetcher downloads pages and reads their lead image.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// New creates a Fetcher. A nil client gets one with DefaultTimeout.
func New(client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{client: client, maxBytes: DefaultMaxBytes, logger: logger}
}

// LeadImage returns the absolute URL of the page's lead image: og:image,
// then twitter:image, then the first <img> in the body.
func (f *Fetcher) LeadImage(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "postbot/1.0 (+link preview)")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	src := pick(doc)
	if src == "" {
		return "", ErrNoImage
	}
	ref, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", ErrNoImage
	}
	f.logger.Debug("lead image found", zap.String("page", pageURL), zap.String("image", abs.String()))
	return abs.String(), nil
}

func pick(doc *goquery.Document) string {
	selectors := []struct{ sel, attr string }{
		{`meta[property="og:image"]`, "content"},
		{`meta[name="og:image"]`, "content"},
		{`meta[name="twitter:image"]`, "content"},
		{`meta[property="twitter:image"]`, "content"},
		{`article img`, "src"},
		{`img`, "src"},
	}
	for _, s := range selectors {
		var found string
		doc.Find(s.sel).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if v, ok := sel.Attr(s.attr); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// MatchHost reports whether link points at one of hosts or a subdomain of
// one.
func MatchHost(link string, hosts []string) bool {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	h := strings.ToLower(u.Hostname())
	for _, want := range hosts {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if h == want || strings.HasSuffix(h, "."+want) {
			return true
		}
	}
	return false
}
