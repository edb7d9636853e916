package lemonsqueezy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(t *testing.T, body []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"meta":{"event_name":"subscription_created"}}`)
	secret := "whsec-test"

	if !VerifySignature(body, sign(t, body, secret), secret) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(body, sign(t, body, "other-secret"), secret) {
		t.Error("signature from wrong secret accepted")
	}
	if VerifySignature([]byte(`{"tampered":true}`), sign(t, body, secret), secret) {
		t.Error("signature over different body accepted")
	}
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"meta": {
			"event_name": "subscription_payment_success",
			"webhook_id": "wh_123",
			"custom_data": {"user_id": "0191a-user"}
		},
		"data": {
			"id": "sub_789",
			"attributes": {
				"status": "active",
				"customer_id": 42,
				"variant_id": 1001,
				"renews_at": "2026-09-30T00:00:00Z"
			}
		}
	}`)

	event, err := ParseWebhook(body)
	if err != nil {
		t.Fatalf("parsing webhook: %v", err)
	}

	if event.ID != "wh_123" {
		t.Errorf("wanted event id wh_123, got %s", event.ID)
	}
	if event.Name != EventSubscriptionPaymentSuccess {
		t.Errorf("wanted payment success event, got %s", event.Name)
	}
	if event.UserID != "0191a-user" {
		t.Errorf("wanted user id from custom data, got %s", event.UserID)
	}
	if event.Subscription.ID != "sub_789" || event.Subscription.CustomerID != "42" {
		t.Errorf("subscription mismatch: %+v", event.Subscription)
	}
	if event.Subscription.RenewsAt == nil {
		t.Error("expected renews_at to be parsed")
	}
}

func TestParseWebhookMissingFields(t *testing.T) {
	if _, err := ParseWebhook([]byte(`{"meta":{}}`)); err == nil {
		t.Error("expected error for missing event name")
	}
	if _, err := ParseWebhook([]byte(`{"meta":{"event_name":"subscription_created"}}`)); err == nil {
		t.Error("expected error for missing webhook id")
	}
	if _, err := ParseWebhook([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}
