package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSitemapURLSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
 <url><loc>https://blog.example/write-for-us</loc></url>
 <url><loc>https://blog.example/resources</loc><lastmod>2026-01-01</lastmod></url>
</urlset>`)
	}))
	defer server.Close()

	urls, err := New().Sitemap(context.Background(), server.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("expanding sitemap: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
	if urls[0] != "https://blog.example/write-for-us" {
		t.Errorf("unexpected first url %q", urls[0])
	}
}

func TestSitemapIndexFollowed(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex>
 <sitemap><loc>%s/pages.xml</loc></sitemap>
</sitemapindex>`, server.URL)
	})
	mux.HandleFunc("/pages.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?>
<urlset>
 <url><loc>https://blog.example/guest-posts</loc></url>
</urlset>`)
	})

	urls, err := New().Sitemap(context.Background(), server.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("expanding sitemap index: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://blog.example/guest-posts" {
		t.Errorf("expected nested url, got %v", urls)
	}
}

func TestSitemapRejectsUnexpectedRoot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>not a sitemap</body></html>`)
	}))
	defer server.Close()

	if _, err := New().Sitemap(context.Background(), server.URL); err == nil {
		t.Error("expected error for non-sitemap document")
	}
}

func TestSitemapNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	if _, err := New().Sitemap(context.Background(), server.URL+"/sitemap.xml"); err == nil {
		t.Error("expected error for 404 sitemap")
	}
}
