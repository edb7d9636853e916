package crawler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/beevik/etree"
)

// maxSitemapURLs caps how many candidate URLs one sitemap contributes.
const maxSitemapURLs = 500

// Sitemap fetches a sitemap.xml and returns the page URLs it lists. Nested
// sitemap indexes are followed one level deep.
func (crawler *Crawler) Sitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	body, err := crawler.fetchRaw(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parsing sitemap %s : %w", sitemapURL, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sitemap %s has no root element", sitemapURL)
	}

	switch root.Tag {
	case "urlset":
		return sitemapLocs(root), nil
	case "sitemapindex":
		var urls []string
		for _, child := range sitemapLocs(root) {
			nested, err := crawler.fetchRaw(ctx, child)
			if err != nil {
				continue
			}
			childDoc := etree.NewDocument()
			if err := childDoc.ReadFromBytes(nested); err != nil {
				continue
			}
			if childRoot := childDoc.Root(); childRoot != nil && childRoot.Tag == "urlset" {
				urls = append(urls, sitemapLocs(childRoot)...)
			}
			if len(urls) >= maxSitemapURLs {
				return urls[:maxSitemapURLs], nil
			}
		}
		return urls, nil
	default:
		return nil, fmt.Errorf("sitemap %s has unexpected root element %q", sitemapURL, root.Tag)
	}
}

// sitemapLocs collects loc values from url/sitemap entries under root.
func sitemapLocs(root *etree.Element) []string {
	var locs []string
	for _, entry := range root.ChildElements() {
		if entry.Tag != "url" && entry.Tag != "sitemap" {
			continue
		}
		if loc := entry.SelectElement("loc"); loc != nil {
			if text := loc.Text(); text != "" {
				locs = append(locs, text)
			}
		}
		if len(locs) >= maxSitemapURLs {
			break
		}
	}
	return locs
}

// fetchRaw retrieves a URL and returns the decoded body without any page
// dissection.
func (crawler *Crawler) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s : %w", rawURL, err)
	}
	req.Header.Set("User-Agent", crawler.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")

	res, err := crawler.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s : %w", rawURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s : unexpected status %d", rawURL, res.StatusCode)
	}

	body, err := decodeBody(res, crawler.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("decoding body of %s : %w", rawURL, err)
	}
	return body, nil
}
