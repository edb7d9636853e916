package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip"
	"github.com/linkdripai/linkdrip/db"
	"github.com/linkdripai/linkdrip/domain"
)

const testWebhookSecret = "test-webhook-secret"

func setupTestServer(t *testing.T, options ...func(*linkdrip.App) error) (*Server, *linkdrip.App) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := db.New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	options = append([]func(*linkdrip.App) error{linkdrip.WithRepo(db.NewRepo(dbConn))}, options...)
	app, err := linkdrip.New(options...)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	go app.WriteToDB()
	t.Cleanup(func() {
		app.Close()
	})

	server, err := New(app,
		WithJWTSecret([]byte("test-jwt-secret")),
		WithWebhookSecret(testWebhookSecret),
	)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return server, app
}

// doJSON performs a request against the server with an optional bearer
// token and JSON body, decoding the response into result when non-nil.
func doJSON(t *testing.T, server *Server, method, path, token string, body any, result any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)

	if result != nil && recorder.Code < 300 {
		if err := json.Unmarshal(recorder.Body.Bytes(), result); err != nil {
			t.Fatalf("decoding response %q: %v", recorder.Body.String(), err)
		}
	}
	return recorder
}

// registerTestUser registers an account and returns its session token and ID.
func registerTestUser(t *testing.T, server *Server) (string, uuid.UUID) {
	t.Helper()

	var response struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	recorder := doJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    fmt.Sprintf("%s@linkdrip.test", uuid.NewString()),
		"name":     "Test User",
		"password": "hunter2hunter2",
	}, &response)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("registering user: status %d body %s", recorder.Code, recorder.Body.String())
	}
	userID, err := uuid.Parse(response.User.ID)
	if err != nil {
		t.Fatalf("parsing user id: %v", err)
	}
	return response.Token, userID
}

func createTestWebsite(t *testing.T, server *Server, token string) string {
	t.Helper()

	var site struct {
		ID string `json:"id"`
	}
	recorder := doJSON(t, server, http.MethodPost, "/api/websites", token, map[string]any{
		"url":      "https://mysite.test",
		"keywords": []string{"golang"},
	}, &site)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("creating website: status %d body %s", recorder.Code, recorder.Body.String())
	}
	return site.ID
}

func seedServerProspect(t *testing.T, app *linkdrip.App, websiteID string, premium bool) *domain.Prospect {
	t.Helper()

	siteID, err := uuid.Parse(websiteID)
	if err != nil {
		t.Fatalf("parsing website id: %v", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}
	prospect := &domain.Prospect{
		ID:           id,
		WebsiteID:    siteID,
		URL:          fmt.Sprintf("https://%s.example.com/write-for-us", id),
		Domain:       fmt.Sprintf("%s.example.com", id),
		Kind:         domain.KindGuestPost,
		Title:        "Write For Us",
		ContactEmail: "editor@example.com",
		FitScore:     80,
		Premium:      premium,
		Status:       domain.StatusNew,
		DiscoveredAt: time.Now().UTC(),
	}
	if err := app.Repo.InsertProspect(prospect); err != nil {
		t.Fatalf("inserting prospect: %v", err)
	}
	return prospect
}

func TestServer_RequiresJWTSecret(t *testing.T) {
	app, err := linkdrip.New()
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	if _, err := New(app); err == nil {
		t.Fatal("a server without a jwt secret should be rejected")
	}
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	server, _ := setupTestServer(t)

	var registered struct {
		Token string `json:"token"`
		User  struct {
			Email      string `json:"email"`
			Onboarding string `json:"onboarding"`
		} `json:"user"`
	}
	recorder := doJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "Alex@Linkdrip.Test",
		"name":     "Alex",
		"password": "hunter2hunter2",
	}, &registered)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("registering: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if registered.User.Email != "alex@linkdrip.test" {
		t.Errorf("email should be normalised\nwanted:\nalex@linkdrip.test\ngot:\n%s", registered.User.Email)
	}
	if registered.User.Onboarding != "website" {
		t.Errorf("new accounts should start onboarding, got %q", registered.User.Onboarding)
	}

	// Duplicate email is rejected.
	recorder = doJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "alex@linkdrip.test",
		"password": "hunter2hunter2",
	}, nil)
	if recorder.Code != http.StatusConflict {
		t.Errorf("duplicate registration should conflict, got %d", recorder.Code)
	}

	// Login with the right password.
	var session struct {
		Token string `json:"token"`
	}
	recorder = doJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alex@linkdrip.test",
		"password": "hunter2hunter2",
	}, &session)
	if recorder.Code != http.StatusOK {
		t.Fatalf("logging in: status %d body %s", recorder.Code, recorder.Body.String())
	}

	// And the token works on /me.
	var me struct {
		Email string `json:"email"`
	}
	recorder = doJSON(t, server, http.MethodGet, "/api/auth/me", session.Token, nil, &me)
	if recorder.Code != http.StatusOK {
		t.Fatalf("fetching profile: status %d", recorder.Code)
	}
	if me.Email != "alex@linkdrip.test" {
		t.Errorf("profile email mismatch: %s", me.Email)
	}

	// Wrong password is rejected without detail.
	recorder = doJSON(t, server, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alex@linkdrip.test",
		"password": "wrong-password",
	}, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("wrong password should be unauthorized, got %d", recorder.Code)
	}
}

func TestAuth_RejectsBadTokens(t *testing.T) {
	server, _ := setupTestServer(t)

	recorder := doJSON(t, server, http.MethodGet, "/api/drips", "", nil, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("missing token should be unauthorized, got %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodGet, "/api/drips", "not-a-token", nil, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("garbage token should be unauthorized, got %d", recorder.Code)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if envelope.Error == "" {
		t.Error("error responses should carry an error message")
	}
}

func TestProspects_ListAndDetail(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)
	websiteID := createTestWebsite(t, server, token)
	prospect := seedServerProspect(t, app, websiteID, false)

	var listed []struct {
		ID           string `json:"id"`
		ContactEmail string `json:"contact_email"`
	}
	recorder := doJSON(t, server, http.MethodGet, "/api/prospects", token, nil, &listed)
	if recorder.Code != http.StatusOK {
		t.Fatalf("listing prospects: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if len(listed) != 1 {
		t.Fatalf("expected one prospect, got %d", len(listed))
	}
	if listed[0].ContactEmail != "" {
		t.Error("locked prospects must not expose contact details")
	}

	var detail struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	recorder = doJSON(t, server, http.MethodGet, "/api/prospects/"+prospect.ID.String(), token, nil, &detail)
	if recorder.Code != http.StatusOK {
		t.Fatalf("getting prospect: status %d", recorder.Code)
	}
	if detail.Status != domain.StatusNew {
		t.Errorf("unexpected status %q", detail.Status)
	}

	// Another user cannot see it.
	otherToken, _ := registerTestUser(t, server)
	recorder = doJSON(t, server, http.MethodGet, "/api/prospects/"+prospect.ID.String(), otherToken, nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("foreign prospect should be not found, got %d", recorder.Code)
	}
}

func TestProspects_StatusAndSplash(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)
	websiteID := createTestWebsite(t, server, token)
	prospect := seedServerProspect(t, app, websiteID, false)
	premium := seedServerProspect(t, app, websiteID, true)

	recorder := doJSON(t, server, http.MethodPost, "/api/prospects/"+prospect.ID.String()+"/status", token,
		map[string]string{"status": domain.StatusDiscarded}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("updating status: status %d body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/prospects/"+prospect.ID.String()+"/status", token,
		map[string]string{"status": domain.StatusDripped}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("drip status is allocation-owned, expected bad request, got %d", recorder.Code)
	}

	// Free (non-premium) splash unlocks without credits.
	var unlocked struct {
		ContactEmail string `json:"contact_email"`
		Status       string `json:"status"`
	}
	recorder = doJSON(t, server, http.MethodPost, "/api/prospects/"+prospect.ID.String()+"/splash", token, nil, &unlocked)
	if recorder.Code != http.StatusOK {
		t.Fatalf("splashing: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if unlocked.ContactEmail == "" {
		t.Error("unlocked prospect should expose its contact email")
	}
	if unlocked.Status != domain.StatusUnlocked {
		t.Errorf("unexpected status %q", unlocked.Status)
	}

	// Premium splash without credits pays the price.
	recorder = doJSON(t, server, http.MethodPost, "/api/prospects/"+premium.ID.String()+"/splash", token, nil, nil)
	if recorder.Code != http.StatusPaymentRequired {
		t.Errorf("premium splash without credits should be payment required, got %d", recorder.Code)
	}
}

func TestDrips_AllocatesOnRead(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)
	websiteID := createTestWebsite(t, server, token)
	for range 5 {
		seedServerProspect(t, app, websiteID, false)
	}

	var drips []struct {
		Status string `json:"status"`
	}
	recorder := doJSON(t, server, http.MethodGet, "/api/drips", token, nil, &drips)
	if recorder.Code != http.StatusOK {
		t.Fatalf("fetching drips: status %d body %s", recorder.Code, recorder.Body.String())
	}
	free := app.Plan(linkdrip.PlanFree)
	if len(drips) != free.DailyDrips {
		t.Fatalf("free plan should drip its quota\nwanted:\n%d\ngot:\n%d", free.DailyDrips, len(drips))
	}

	// Second read returns the same feed, not a new allocation.
	recorder = doJSON(t, server, http.MethodGet, "/api/drips", token, nil, &drips)
	if recorder.Code != http.StatusOK {
		t.Fatalf("re-fetching drips: status %d", recorder.Code)
	}
	if len(drips) != free.DailyDrips {
		t.Errorf("second read should be idempotent, got %d drips", len(drips))
	}
}

func TestEmails_CRUD(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)
	websiteID := createTestWebsite(t, server, token)
	prospect := seedServerProspect(t, app, websiteID, false)

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	recorder := doJSON(t, server, http.MethodPost, "/api/emails", token, map[string]string{
		"prospect_id": prospect.ID.String(),
		"subject":     "Guest post pitch",
		"body":        "Hi there",
	}, &created)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("creating email: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if created.Status != domain.EmailDraft {
		t.Errorf("new emails should be drafts, got %q", created.Status)
	}

	recorder = doJSON(t, server, http.MethodPut, "/api/emails/"+created.ID, token, map[string]string{
		"subject": "Better pitch",
		"body":    "Hello!",
	}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("updating draft: status %d body %s", recorder.Code, recorder.Body.String())
	}

	// Marking sent also moves the prospect to contacted.
	var sent struct {
		Status string     `json:"status"`
		SentAt *time.Time `json:"sent_at"`
	}
	recorder = doJSON(t, server, http.MethodPost, "/api/emails/"+created.ID+"/status", token,
		map[string]string{"status": domain.EmailSent}, &sent)
	if recorder.Code != http.StatusOK {
		t.Fatalf("marking sent: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if sent.SentAt == nil {
		t.Error("sent emails should record a send time")
	}
	updated, err := app.Repo.GetProspect(prospect.ID)
	if err != nil {
		t.Fatalf("getting prospect: %v", err)
	}
	if updated.Status != domain.StatusContacted {
		t.Errorf("sending an email should mark the prospect contacted, got %q", updated.Status)
	}

	// Sent emails can no longer be edited.
	recorder = doJSON(t, server, http.MethodPut, "/api/emails/"+created.ID, token, map[string]string{
		"subject": "Too late",
	}, nil)
	if recorder.Code != http.StatusConflict {
		t.Errorf("editing a sent email should conflict, got %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodDelete, "/api/emails/"+created.ID, token, nil, nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("deleting email: status %d", recorder.Code)
	}
	recorder = doJSON(t, server, http.MethodGet, "/api/emails/"+created.ID, token, nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("deleted email should be gone, got %d", recorder.Code)
	}
}

func TestCampaigns_CRUDAndLinking(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)
	websiteID := createTestWebsite(t, server, token)
	prospect := seedServerProspect(t, app, websiteID, false)

	var campaign struct {
		ID string `json:"id"`
	}
	recorder := doJSON(t, server, http.MethodPost, "/api/campaigns", token, map[string]string{
		"name":        "Q3 guest posts",
		"description": "High authority targets",
	}, &campaign)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("creating campaign: status %d body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, server, http.MethodPost, "/api/campaigns/"+campaign.ID+"/prospects", token,
		map[string]string{"prospect_id": prospect.ID.String()}, nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("linking prospect: status %d body %s", recorder.Code, recorder.Body.String())
	}

	var linked []struct {
		ID string `json:"id"`
	}
	recorder = doJSON(t, server, http.MethodGet, "/api/campaigns/"+campaign.ID+"/prospects", token, nil, &linked)
	if recorder.Code != http.StatusOK {
		t.Fatalf("listing campaign prospects: status %d", recorder.Code)
	}
	if len(linked) != 1 || linked[0].ID != prospect.ID.String() {
		t.Fatalf("linked prospect missing from campaign listing")
	}

	// Campaigns are private to their owner.
	otherToken, _ := registerTestUser(t, server)
	recorder = doJSON(t, server, http.MethodDelete, "/api/campaigns/"+campaign.ID, otherToken, nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("foreign campaign should be not found, got %d", recorder.Code)
	}

	recorder = doJSON(t, server, http.MethodDelete, "/api/campaigns/"+campaign.ID, token, nil, nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("deleting campaign: status %d", recorder.Code)
	}
}

func TestSubscription_DefaultsToFree(t *testing.T) {
	server, _ := setupTestServer(t)
	token, _ := registerTestUser(t, server)

	var sub struct {
		Plan   string `json:"plan"`
		Status string `json:"status"`
	}
	recorder := doJSON(t, server, http.MethodGet, "/api/subscription", token, nil, &sub)
	if recorder.Code != http.StatusOK {
		t.Fatalf("getting subscription: status %d", recorder.Code)
	}
	if sub.Plan != linkdrip.PlanFree {
		t.Errorf("users without a subscription should see the free plan, got %q", sub.Plan)
	}
	if sub.Status != "none" {
		t.Errorf("unexpected status %q", sub.Status)
	}
}

func signWebhook(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhook_SignatureAndApply(t *testing.T) {
	server, app := setupTestServer(t)
	token, userID := registerTestUser(t, server)
	app.Plans[linkdrip.PlanGrow] = linkdrip.Plan{
		Name:          linkdrip.PlanGrow,
		DailyDrips:    10,
		MonthlySplash: 3,
		Premium:       true,
		VariantID:     "424242",
	}

	body := []byte(fmt.Sprintf(`{
		"meta": {
			"event_name": "subscription_created",
			"webhook_id": "wh-1",
			"custom_data": {"user_id": %q}
		},
		"data": {
			"id": "ls-sub-1",
			"attributes": {"status": "active", "customer_id": 7, "variant_id": 424242}
		}
	}`, userID))

	// Bad signature is rejected before parsing.
	request := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	request.Header.Set("X-Signature", "bogus")
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature should be unauthorized, got %d", recorder.Code)
	}

	request = httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	request.Header.Set("X-Signature", signWebhook(body))
	recorder = httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("applying webhook: status %d body %s", recorder.Code, recorder.Body.String())
	}

	var sub struct {
		Plan          string `json:"plan"`
		SplashCredits int    `json:"splash_credits"`
	}
	response := doJSON(t, server, http.MethodGet, "/api/subscription", token, nil, &sub)
	if response.Code != http.StatusOK {
		t.Fatalf("getting subscription: status %d", response.Code)
	}
	if sub.Plan != linkdrip.PlanGrow {
		t.Errorf("webhook should map the variant to the grow plan, got %q", sub.Plan)
	}
	if sub.SplashCredits != 3 {
		t.Errorf("new subscriptions should start with the splash grant, got %d", sub.SplashCredits)
	}
}

func TestWebhook_NoSecretConfigured(t *testing.T) {
	_, app := setupTestServer(t)

	// A server without a signing secret must refuse every delivery:
	// verifying against an empty key would accept forged events.
	bare, err := New(app, WithJWTSecret([]byte("test-jwt-secret")))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	body := []byte(`{"meta": {"event_name": "subscription_created"}}`)
	request := httptest.NewRequest(http.MethodPost, "/api/webhooks/lemonsqueezy", bytes.NewReader(body))
	request.Header.Set("X-Signature", signWebhook(body))
	recorder := httptest.NewRecorder()
	bare.Handler().ServeHTTP(recorder, request)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured webhook secret should refuse deliveries, got %d", recorder.Code)
	}
}

func TestStats(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)
	websiteID := createTestWebsite(t, server, token)
	prospect := seedServerProspect(t, app, websiteID, false)
	seedServerProspect(t, app, websiteID, false)

	doJSON(t, server, http.MethodPost, "/api/emails", token, map[string]string{
		"prospect_id": prospect.ID.String(),
		"subject":     "Pitch",
	}, nil)
	doJSON(t, server, http.MethodPost, "/api/campaigns", token, map[string]string{
		"name": "Launch",
	}, nil)

	var stats struct {
		Prospects int `json:"prospects"`
		Emails    int `json:"emails"`
		Campaigns int `json:"campaigns"`
	}
	recorder := doJSON(t, server, http.MethodGet, "/api/stats", token, nil, &stats)
	if recorder.Code != http.StatusOK {
		t.Fatalf("getting stats: status %d", recorder.Code)
	}
	if stats.Prospects != 2 {
		t.Errorf("expected 2 prospects, got %d", stats.Prospects)
	}
	if stats.Emails != 1 {
		t.Errorf("expected 1 email, got %d", stats.Emails)
	}
	if stats.Campaigns != 1 {
		t.Errorf("expected 1 campaign, got %d", stats.Campaigns)
	}
}

func TestMetrics_CachedLookup(t *testing.T) {
	server, app := setupTestServer(t)
	token, _ := registerTestUser(t, server)

	if err := app.Repo.UpsertMetrics(&domain.DomainMetrics{
		Domain:          "cached.test",
		DomainAuthority: 51,
		FetchedAt:       time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seeding metrics: %v", err)
	}

	var metrics struct {
		Domain          string `json:"domain"`
		DomainAuthority int    `json:"domain_authority"`
	}
	recorder := doJSON(t, server, http.MethodGet, "/api/metrics/cached.test", token, nil, &metrics)
	if recorder.Code != http.StatusOK {
		t.Fatalf("getting metrics: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if metrics.DomainAuthority != 51 {
		t.Errorf("unexpected authority %d", metrics.DomainAuthority)
	}

	// No cache entry and no Moz client behaves as a miss.
	recorder = doJSON(t, server, http.MethodGet, "/api/metrics/unknown.test", token, nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("uncached domain without a moz client should be not found, got %d", recorder.Code)
	}
}
