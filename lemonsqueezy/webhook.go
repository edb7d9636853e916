package lemonsqueezy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Webhook event names LinkDrip reacts to.
const (
	EventSubscriptionCreated        = "subscription_created"
	EventSubscriptionUpdated        = "subscription_updated"
	EventSubscriptionCancelled      = "subscription_cancelled"
	EventSubscriptionPaymentSuccess = "subscription_payment_success"
)

// WebhookEvent is a decoded LemonSqueezy webhook delivery.
type WebhookEvent struct {
	ID           string        // Unique event ID, used for idempotent replay handling.
	Name         string        // Event name, see Event* constants.
	UserID       string        // LinkDrip user ID carried in the checkout's custom data.
	Subscription *Subscription // Subscription state at the time of the event.
}

// VerifySignature checks the X-Signature header of a webhook delivery
// against the raw request body using the shared signing secret.
// The comparison is constant time.
func VerifySignature(body []byte, signature string, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// webhookPayload mirrors the parts of a webhook delivery LinkDrip reads.
type webhookPayload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		WebhookID  string `json:"webhook_id"`
		CustomData struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status     string     `json:"status"`
			CustomerID int        `json:"customer_id"`
			VariantID  int        `json:"variant_id"`
			RenewsAt   *time.Time `json:"renews_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseWebhook decodes a verified webhook body into a WebhookEvent.
// Callers must verify the signature first; ParseWebhook does no
// authentication of its own.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshalling webhook : %w", err)
	}

	if payload.Meta.EventName == "" {
		return nil, fmt.Errorf("webhook missing event name")
	}
	if payload.Meta.WebhookID == "" {
		return nil, fmt.Errorf("webhook missing id")
	}

	event := &WebhookEvent{
		ID:     payload.Meta.WebhookID,
		Name:   payload.Meta.EventName,
		UserID: payload.Meta.CustomData.UserID,
		Subscription: &Subscription{
			ID:         payload.Data.ID,
			CustomerID: fmt.Sprintf("%d", payload.Data.Attributes.CustomerID),
			Status:     payload.Data.Attributes.Status,
			VariantID:  fmt.Sprintf("%d", payload.Data.Attributes.VariantID),
			RenewsAt:   payload.Data.Attributes.RenewsAt,
		},
	}

	return event, nil
}
