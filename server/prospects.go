package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip/db"
	"github.com/linkdripai/linkdrip/domain"
)

func (server *Server) prospectRoutes() {
	server.mux.Handle("GET /api/prospects", server.requireAuth(server.handleListProspects))
	server.mux.Handle("GET /api/prospects/{id}", server.requireAuth(server.handleGetProspect))
	server.mux.Handle("POST /api/prospects/{id}/status", server.requireAuth(server.handleProspectStatus))
	server.mux.Handle("POST /api/prospects/{id}/splash", server.requireAuth(server.handleSplash))
}

// prospectPayload is the API view of a prospect. Contact details stay
// hidden until the prospect is unlocked.
type prospectPayload struct {
	ID              string     `json:"id"`
	WebsiteID       string     `json:"website_id"`
	URL             string     `json:"url"`
	Domain          string     `json:"domain"`
	Kind            string     `json:"kind"`
	Title           string     `json:"title"`
	ContactEmail    string     `json:"contact_email,omitempty"`
	DomainAuthority int        `json:"domain_authority"`
	SpamScore       int        `json:"spam_score"`
	FitScore        int        `json:"fit_score"`
	Premium         bool       `json:"premium"`
	Status          string     `json:"status"`
	Snapshot        string     `json:"snapshot,omitempty"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`
}

func newProspectPayload(prospect *domain.Prospect, includeSnapshot bool) prospectPayload {
	payload := prospectPayload{
		ID:              prospect.ID.String(),
		WebsiteID:       prospect.WebsiteID.String(),
		URL:             prospect.URL,
		Domain:          prospect.Domain,
		Kind:            prospect.Kind,
		Title:           prospect.Title,
		DomainAuthority: prospect.DomainAuthority,
		SpamScore:       prospect.SpamScore,
		FitScore:        prospect.FitScore,
		Premium:         prospect.Premium,
		Status:          prospect.Status,
		DiscoveredAt:    prospect.DiscoveredAt,
		UnlockedAt:      prospect.UnlockedAt,
	}
	if prospect.UnlockedAt != nil {
		payload.ContactEmail = prospect.ContactEmail
	}
	if includeSnapshot {
		payload.Snapshot = string(prospect.Snapshot)
	}
	return payload
}

// userProspect resolves a prospect ID from the path and checks it belongs
// to one of the authenticated user's websites.
func (server *Server) userProspect(w http.ResponseWriter, r *http.Request) (*domain.Prospect, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "invalid prospect id")
		return nil, false
	}
	prospect, err := server.app.Repo.GetProspect(id)
	if err != nil {
		server.respondError(w, http.StatusNotFound, "prospect not found")
		return nil, false
	}
	site, err := server.app.Repo.GetWebsite(prospect.WebsiteID)
	if err != nil || site.UserID != requestUser(r) {
		server.respondError(w, http.StatusNotFound, "prospect not found")
		return nil, false
	}
	return prospect, true
}

func (server *Server) handleListProspects(w http.ResponseWriter, r *http.Request) {
	sites, err := server.app.Repo.GetWebsitesForUser(requestUser(r))
	if err != nil {
		server.logger.Error("listing websites", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not list prospects")
		return
	}
	if len(sites) == 0 {
		server.respondJSON(w, http.StatusOK, []prospectPayload{})
		return
	}

	target := sites[0]
	if raw := r.URL.Query().Get("website"); raw != "" {
		websiteID, err := uuid.Parse(raw)
		if err != nil {
			server.respondError(w, http.StatusBadRequest, "invalid website id")
			return
		}
		target = nil
		for _, site := range sites {
			if site.ID == websiteID {
				target = site
				break
			}
		}
		if target == nil {
			server.respondError(w, http.StatusNotFound, "website not found")
			return
		}
	}

	filter, err := prospectFilterFromQuery(r)
	if err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prospects, err := server.app.Repo.ListProspects(target.ID, filter)
	if err != nil {
		server.logger.Error("listing prospects", "website", target.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not list prospects")
		return
	}
	payload := make([]prospectPayload, 0, len(prospects))
	for _, prospect := range prospects {
		payload = append(payload, newProspectPayload(prospect, false))
	}
	server.respondJSON(w, http.StatusOK, payload)
}

// prospectFilterFromQuery builds a repository filter from the query string.
func prospectFilterFromQuery(r *http.Request) (domain.ProspectFilter, error) {
	query := r.URL.Query()
	filter := domain.ProspectFilter{
		Status: query.Get("status"),
		Kind:   query.Get("kind"),
	}
	if raw := query.Get("min_authority"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("min_authority must be a number")
		}
		filter.MinAuthority = value
	}
	if raw := query.Get("max_spam"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("max_spam must be a number")
		}
		filter.MaxSpam = value
	}
	if raw := query.Get("premium"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.New("premium must be true or false")
		}
		filter.Premium = &value
	}
	if raw := query.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return filter, errors.New("limit must be a positive number")
		}
		filter.Limit = value
	}
	return filter, nil
}

func (server *Server) handleGetProspect(w http.ResponseWriter, r *http.Request) {
	prospect, ok := server.userProspect(w, r)
	if !ok {
		return
	}
	server.respondJSON(w, http.StatusOK, newProspectPayload(prospect, true))
}

// statusTransitions are the statuses a user can set directly. Dripped and
// unlocked are owned by allocation and splash.
var statusTransitions = map[string]bool{
	domain.StatusContacted: true,
	domain.StatusReplied:   true,
	domain.StatusWon:       true,
	domain.StatusDiscarded: true,
}

func (server *Server) handleProspectStatus(w http.ResponseWriter, r *http.Request) {
	prospect, ok := server.userProspect(w, r)
	if !ok {
		return
	}
	var request struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !statusTransitions[request.Status] {
		server.respondError(w, http.StatusBadRequest, "unsupported status transition")
		return
	}
	if err := server.app.Repo.UpdateProspectStatus(prospect.ID, request.Status); err != nil {
		server.logger.Error("updating prospect status", "prospect", prospect.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not update status")
		return
	}
	prospect.Status = request.Status
	server.respondJSON(w, http.StatusOK, newProspectPayload(prospect, false))
}

func (server *Server) handleSplash(w http.ResponseWriter, r *http.Request) {
	prospect, ok := server.userProspect(w, r)
	if !ok {
		return
	}
	unlocked, err := server.app.Splash(r.Context(), requestUser(r), prospect.ID)
	if err != nil {
		if errors.Is(err, db.ErrNoSplashCredits) {
			server.respondError(w, http.StatusPaymentRequired, "no splash credits remaining")
			return
		}
		server.logger.Error("splashing prospect", "prospect", prospect.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not unlock prospect")
		return
	}
	server.respondJSON(w, http.StatusOK, newProspectPayload(unlocked, false))
}
