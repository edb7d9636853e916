// Package moz implements the client for the Moz Links API that backs the
// domain metrics shown on prospects. It layers a TTL cache, request
// batching, and in-flight deduplication over the upstream API so that the
// dashboard never issues more Moz calls than it has to.
package moz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/linkdripai/linkdrip/domain"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL = "https://lsapi.seomoz.com/v2"
	// Moz accepts at most 50 targets per url_metrics call.
	maxBatchSize = 50
)

// Client is a Moz Links API v2 client. All lookups go through an in-memory
// TTL cache and concurrent lookups for the same domain collapse into a
// single upstream request.
type Client struct {
	BaseURL string        // API base URL, overridable for tests.
	Token   string        // Moz API token.
	TTL     time.Duration // How long a cached metrics entry stays warm.

	client *http.Client
	cache  *ttlCache
	group  singleflight.Group
}

// NewClient creates a Moz client with the given API token and applies any
// provided options.
func NewClient(token string, options ...func(*Client)) *Client {
	client := &Client{
		BaseURL: defaultBaseURL,
		Token:   token,
		TTL:     24 * time.Hour,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, option := range options {
		option(client)
	}
	client.cache = newTTLCache(client.TTL)
	return client
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) func(*Client) {
	return func(client *Client) {
		client.BaseURL = url
	}
}

// WithTTL overrides how long cached metrics stay warm.
func WithTTL(ttl time.Duration) func(*Client) {
	return func(client *Client) {
		client.TTL = ttl
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) func(*Client) {
	return func(client *Client) {
		client.client = httpClient
	}
}

// urlMetricsRequest is the JSON payload for the url_metrics endpoint.
type urlMetricsRequest struct {
	Targets []string `json:"targets"`
}

// urlMetricsResult is a single result row from the url_metrics endpoint.
// Moz reports authority values as floats.
type urlMetricsResult struct {
	Page                 string  `json:"page"`
	DomainAuthority      float64 `json:"domain_authority"`
	PageAuthority        float64 `json:"page_authority"`
	SpamScore            float64 `json:"spam_score"`
	RootDomainsToRootDom int     `json:"root_domains_to_root_domain"`
}

// urlMetricsResponse is the JSON response from the url_metrics endpoint.
// Results come back in target order.
type urlMetricsResponse struct {
	Results []urlMetricsResult `json:"results"`
}

// Metrics returns the link metrics for a single domain, served from the
// cache when warm. Concurrent calls for the same cold domain share one
// upstream request.
func (client *Client) Metrics(ctx context.Context, host string) (*domain.DomainMetrics, error) {
	if cached, ok := client.cache.get(host); ok {
		return cached, nil
	}

	result, err, _ := client.group.Do(host, func() (any, error) {
		// Re-check after winning the flight; a previous winner may have
		// filled the cache while this call was queued.
		if cached, ok := client.cache.get(host); ok {
			return cached, nil
		}

		results, err := client.fetch(ctx, []string{host})
		if err != nil {
			return nil, err
		}

		m, ok := results[host]
		if !ok {
			return nil, fmt.Errorf("moz returned no metrics for %s", host)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.DomainMetrics), nil
}

// MetricsBatch returns link metrics for a set of domains, fetching only the
// domains the cache cannot serve. Cold domains are chunked into upstream
// calls of at most 50 targets.
func (client *Client) MetricsBatch(ctx context.Context, hosts []string) (map[string]*domain.DomainMetrics, error) {
	results := make(map[string]*domain.DomainMetrics, len(hosts))

	var cold []string
	for _, host := range hosts {
		if _, ok := results[host]; ok {
			continue
		}
		if cached, ok := client.cache.get(host); ok {
			results[host] = cached
			continue
		}
		cold = append(cold, host)
	}

	for start := 0; start < len(cold); start += maxBatchSize {
		end := min(start+maxBatchSize, len(cold))
		fetched, err := client.fetch(ctx, cold[start:end])
		if err != nil {
			return nil, err
		}
		for host, m := range fetched {
			results[host] = m
		}
	}

	return results, nil
}

// fetch performs one url_metrics call for up to 50 targets, retrying
// transient failures, and populates the cache with the results.
func (client *Client) fetch(ctx context.Context, targets []string) (map[string]*domain.DomainMetrics, error) {
	payload, err := json.Marshal(urlMetricsRequest{Targets: targets})
	if err != nil {
		return nil, fmt.Errorf("marshalling url_metrics request : %w", err)
	}

	var decoded urlMetricsResponse
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.BaseURL+"/url_metrics", bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("creating request : %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-moz-token", client.Token)

			resp, err := client.client.Do(req)
			if err != nil {
				return fmt.Errorf("calling moz url_metrics : %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("moz api failed with status %s", resp.Status)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					// Bad token or malformed targets will not heal on retry.
					return retry.Unrecoverable(err)
				}
				return err
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading resp body : %w", err)
			}

			decoded = urlMetricsResponse{}
			if err := json.Unmarshal(body, &decoded); err != nil {
				return retry.Unrecoverable(fmt.Errorf("unmarshalling url_metrics response : %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	if len(decoded.Results) != len(targets) {
		return nil, fmt.Errorf("moz returned %d results for %d targets", len(decoded.Results), len(targets))
	}

	fetchedAt := time.Now()
	results := make(map[string]*domain.DomainMetrics, len(targets))
	for i, row := range decoded.Results {
		m := &domain.DomainMetrics{
			Domain:             targets[i],
			DomainAuthority:    int(math.Round(row.DomainAuthority)),
			PageAuthority:      int(math.Round(row.PageAuthority)),
			SpamScore:          int(math.Round(row.SpamScore)),
			RootDomainsLinking: row.RootDomainsToRootDom,
			FetchedAt:          fetchedAt,
		}
		results[targets[i]] = m
		client.cache.set(targets[i], m)
	}

	return results, nil
}
