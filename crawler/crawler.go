// Package crawler fetches candidate prospect pages for discovery. It
// handles compressed bodies, sniffs content types, extracts the signals the
// scoring pipeline needs (title, contact emails, outbound links), and
// produces the prettified snapshot shown in the dashboard preview.
package crawler

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gabriel-vasile/mimetype"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; LinkDripBot/1.0; +https://linkdrip.io/bot)"

// defaultMaxBodySize caps how much of a page is read. Prospect pages are
// HTML; anything past 2 MiB is not worth scoring.
const defaultMaxBodySize = 2 << 20

// Crawler fetches and dissects candidate pages.
type Crawler struct {
	UserAgent   string // User-Agent header sent with every fetch.
	MaxBodySize int64  // Maximum number of body bytes read per page.

	client *http.Client
}

// Page holds everything discovery needs to know about a fetched page.
type Page struct {
	URL           string   // Final URL after redirects.
	Domain        string   // Hostname of the final URL.
	StatusCode    int      // HTTP status of the response.
	ContentType   string   // Detected content type of the body.
	Title         string   // Page title, empty when none was found.
	ContactEmails []string // Email addresses found on the page, mailto links first.
	Links         []string // Absolute outbound link URLs.
	Snapshot      []byte   // Prettified body for the dashboard preview.
}

// New creates a Crawler with sane defaults and applies any provided options.
func New(options ...func(*Crawler)) *Crawler {
	crawler := &Crawler{
		UserAgent:   defaultUserAgent,
		MaxBodySize: defaultMaxBodySize,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, option := range options {
		option(crawler)
	}
	return crawler
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) func(*Crawler) {
	return func(crawler *Crawler) {
		crawler.client = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) func(*Crawler) {
	return func(crawler *Crawler) {
		crawler.UserAgent = ua
	}
}

// Fetch retrieves a candidate page and extracts its discovery signals.
func (crawler *Crawler) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s : %w", pageURL, err)
	}
	req.Header.Set("User-Agent", crawler.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")

	res, err := crawler.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s : %w", pageURL, err)
	}
	defer res.Body.Close()

	body, err := decodeBody(res, crawler.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("decoding body of %s : %w", pageURL, err)
	}

	finalURL := res.Request.URL
	page := &Page{
		URL:         finalURL.String(),
		Domain:      finalURL.Hostname(),
		StatusCode:  res.StatusCode,
		ContentType: mimetype.Detect(body).String(),
	}

	page.Title = extractTitle(body)
	page.ContactEmails = extractEmails(body)
	page.Links = extractLinks(body, finalURL)

	if snapshot, err := Prettify(body); err == nil && len(snapshot) > 0 {
		page.Snapshot = snapshot
	} else {
		page.Snapshot = body
	}

	return page, nil
}

// decodeBody reads at most maxSize bytes of the response body, decompressing
// gzip and brotli encodings.
func decodeBody(res *http.Response, maxSize int64) ([]byte, error) {
	var reader io.Reader = res.Body

	switch strings.ToLower(res.Header.Get("Content-Encoding")) {
	case "gzip":
		gzipReader, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader : %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case "br":
		reader = brotli.NewReader(res.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxSize))
	if err != nil {
		return nil, fmt.Errorf("reading body : %w", err)
	}
	return body, nil
}

var (
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	mailtoPattern = regexp.MustCompile(`(?i)mailto:([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,})`)
	emailPattern  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	hrefPattern   = regexp.MustCompile(`(?i)href\s*=\s*["']([^"'#]+)["']`)
)

// extractTitle returns the trimmed contents of the first title element.
func extractTitle(body []byte) string {
	match := titlePattern.FindSubmatch(body)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(string(match[1]))
}

// extractEmails collects distinct email addresses, preferring mailto links
// since those are deliberate contact points.
func extractEmails(body []byte) []string {
	seen := make(map[string]bool)
	var emails []string

	for _, match := range mailtoPattern.FindAllSubmatch(body, -1) {
		email := strings.ToLower(string(match[1]))
		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}
	for _, match := range emailPattern.FindAll(body, -1) {
		email := strings.ToLower(string(match))
		if !seen[email] {
			seen[email] = true
			emails = append(emails, email)
		}
	}

	return emails
}

// extractLinks collects distinct absolute http(s) URLs from href attributes,
// resolving relative links against the page URL.
func extractLinks(body []byte, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	for _, match := range hrefPattern.FindAllSubmatch(body, -1) {
		raw := string(match[1])
		if strings.HasPrefix(strings.ToLower(raw), "mailto:") || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
			continue
		}

		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(parsed)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}

		link := resolved.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	}

	return links
}
