// Package lemonsqueezy implements the billing integration. LinkDrip
// delegates checkout and subscription management to LemonSqueezy; this
// package wraps the pieces the backend needs (checkout links, subscription
// lookups) and verifies the webhooks that keep local billing state in sync.
package lemonsqueezy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.lemonsqueezy.com/v1"

// Client is a LemonSqueezy API client scoped to a single store.
type Client struct {
	BaseURL string // API base URL, overridable for tests.
	APIKey  string // LemonSqueezy API key.
	StoreID string // Store the checkouts belong to.

	client *http.Client
}

// NewClient creates a LemonSqueezy client for a store and applies any
// provided options.
func NewClient(apiKey string, storeID string, options ...func(*Client)) *Client {
	client := &Client{
		BaseURL: defaultBaseURL,
		APIKey:  apiKey,
		StoreID: storeID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) func(*Client) {
	return func(client *Client) {
		client.BaseURL = url
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) func(*Client) {
	return func(client *Client) {
		client.client = httpClient
	}
}

// Subscription is the slice of LemonSqueezy subscription state the backend
// mirrors locally.
type Subscription struct {
	ID        string     // LemonSqueezy subscription ID.
	CustomerID string    // LemonSqueezy customer ID.
	Status    string     // active, past_due, cancelled, expired, ...
	VariantID string     // Plan variant the subscription is on.
	RenewsAt  *time.Time // Next renewal, absent for cancelled subscriptions.
}

// jsonAPIDocument is the envelope LemonSqueezy wraps every resource in.
type jsonAPIDocument struct {
	Data jsonAPIResource `json:"data"`
}

type jsonAPIResource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// subscriptionAttributes mirrors the subscription attributes LinkDrip reads.
type subscriptionAttributes struct {
	Status     string     `json:"status"`
	CustomerID int        `json:"customer_id"`
	VariantID  int        `json:"variant_id"`
	RenewsAt   *time.Time `json:"renews_at"`
}

// CreateCheckout creates a hosted checkout for a plan variant and returns
// the checkout URL the dashboard redirects the user to. The user ID travels
// in the checkout's custom data and comes back on webhook events.
func (client *Client) CreateCheckout(ctx context.Context, variantID string, userID string, email string) (string, error) {
	payload := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": map[string]any{
					"email": email,
					"custom": map[string]any{
						"user_id": userID,
					},
				},
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": client.StoreID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": variantID},
				},
			},
		},
	}

	body, err := client.do(ctx, http.MethodPost, "/checkouts", payload)
	if err != nil {
		return "", err
	}

	var doc jsonAPIDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("unmarshalling checkout : %w", err)
	}

	var attrs struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(doc.Data.Attributes, &attrs); err != nil {
		return "", fmt.Errorf("unmarshalling checkout attributes : %w", err)
	}
	if attrs.URL == "" {
		return "", fmt.Errorf("checkout response missing url")
	}

	return attrs.URL, nil
}

// GetSubscription fetches the current state of a subscription.
func (client *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	body, err := client.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}

	return decodeSubscription(body)
}

// CancelSubscription cancels a subscription at the end of the current
// billing period and returns its updated state.
func (client *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	body, err := client.do(ctx, http.MethodDelete, "/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}

	return decodeSubscription(body)
}

func decodeSubscription(body []byte) (*Subscription, error) {
	var doc jsonAPIDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling subscription : %w", err)
	}

	var attrs subscriptionAttributes
	if err := json.Unmarshal(doc.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshalling subscription attributes : %w", err)
	}

	return &Subscription{
		ID:         doc.Data.ID,
		CustomerID: fmt.Sprintf("%d", attrs.CustomerID),
		Status:     attrs.Status,
		VariantID:  fmt.Sprintf("%d", attrs.VariantID),
		RenewsAt:   attrs.RenewsAt,
	}, nil
}

// do performs one API call and returns the raw response body.
func (client *Client) do(ctx context.Context, method string, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling payload : %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, client.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request : %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+client.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}

	resp, err := client.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s : %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading resp body : %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lemonsqueezy api failed with status %s", resp.Status)
	}

	return body, nil
}
