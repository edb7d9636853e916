package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/linkdripai/linkdrip"
	"github.com/linkdripai/linkdrip/db"
	"github.com/linkdripai/linkdrip/lemonsqueezy"
)

func (server *Server) billingRoutes() {
	server.mux.Handle("GET /api/subscription", server.requireAuth(server.handleSubscription))
	server.mux.Handle("POST /api/subscription/checkout", server.requireAuth(server.handleCheckout))
	server.mux.HandleFunc("POST /api/webhooks/lemonsqueezy", server.handleWebhook)
}

type subscriptionPayload struct {
	Plan          string     `json:"plan"`
	Status        string     `json:"status"`
	DailyDrips    int        `json:"daily_drips"`
	SplashCredits int        `json:"splash_credits"`
	Premium       bool       `json:"premium"`
	RenewsAt      *time.Time `json:"renews_at,omitempty"`
}

func (server *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := server.app.Repo.GetSubscription(requestUser(r))
	if err != nil {
		if errors.Is(err, db.ErrNoSubscription) {
			free := server.app.Plan(linkdrip.PlanFree)
			server.respondJSON(w, http.StatusOK, subscriptionPayload{
				Plan:       free.Name,
				Status:     "none",
				DailyDrips: free.DailyDrips,
			})
			return
		}
		server.logger.Error("getting subscription", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load subscription")
		return
	}

	plan := server.app.Plan(sub.Plan)
	server.respondJSON(w, http.StatusOK, subscriptionPayload{
		Plan:          plan.Name,
		Status:        sub.Status,
		DailyDrips:    plan.DailyDrips,
		SplashCredits: sub.SplashCredits,
		Premium:       plan.Premium,
		RenewsAt:      sub.RenewsAt,
	})
}

func (server *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if server.app.Billing == nil {
		server.respondError(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}
	var request struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, ok := server.app.Plans[request.Plan]
	if !ok || plan.VariantID == "" {
		server.respondError(w, http.StatusBadRequest, "unknown or free plan")
		return
	}

	user, err := server.app.Repo.GetUser(requestUser(r))
	if err != nil {
		server.respondError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	checkoutURL, err := server.app.Billing.CreateCheckout(r.Context(), plan.VariantID, user.ID.String(), user.Email)
	if err != nil {
		server.logger.Error("creating checkout", "plan", plan.Name, "error", err)
		server.respondError(w, http.StatusBadGateway, "could not create checkout")
		return
	}
	server.respondJSON(w, http.StatusOK, map[string]string{"url": checkoutURL})
}

// handleWebhook verifies and applies a LemonSqueezy webhook delivery. The
// signature is checked over the raw body before any parsing. Without a
// signing secret every delivery is refused; an empty secret would let
// anyone forge billing events.
func (server *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if server.webhookSecret == "" {
		server.respondError(w, http.StatusServiceUnavailable, "webhook secret is not configured")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if !lemonsqueezy.VerifySignature(body, r.Header.Get("X-Signature"), server.webhookSecret) {
		server.respondError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	event, err := lemonsqueezy.ParseWebhook(body)
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "could not parse webhook payload")
		return
	}
	if err := server.app.ApplyWebhook(r.Context(), event); err != nil {
		server.logger.Error("applying webhook", "event", event.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not apply webhook")
		return
	}
	server.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
