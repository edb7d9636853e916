package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip/domain"
)

func (server *Server) websiteRoutes() {
	server.mux.Handle("GET /api/websites", server.requireAuth(server.handleListWebsites))
	server.mux.Handle("POST /api/websites", server.requireAuth(server.handleCreateWebsite))
	server.mux.Handle("POST /api/websites/{id}/discover", server.requireAuth(server.handleDiscover))
}

type websitePayload struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Domain   string   `json:"domain"`
	Keywords []string `json:"keywords"`
}

func newWebsitePayload(site *domain.Website) websitePayload {
	return websitePayload{
		ID:       site.ID.String(),
		URL:      site.URL,
		Domain:   site.Domain,
		Keywords: site.Keywords,
	}
}

// userWebsite resolves a website ID from the path and checks it belongs to
// the authenticated user.
func (server *Server) userWebsite(w http.ResponseWriter, r *http.Request) (*domain.Website, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "invalid website id")
		return nil, false
	}
	site, err := server.app.Repo.GetWebsite(id)
	if err != nil {
		server.respondError(w, http.StatusNotFound, "website not found")
		return nil, false
	}
	if site.UserID != requestUser(r) {
		server.respondError(w, http.StatusNotFound, "website not found")
		return nil, false
	}
	return site, true
}

// hostFromURL extracts the hostname from an absolute http(s) URL, empty
// when the input is not one.
func hostFromURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.Hostname()
}

func (server *Server) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	sites, err := server.app.Repo.GetWebsitesForUser(requestUser(r))
	if err != nil {
		server.logger.Error("listing websites", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not list websites")
		return
	}
	payload := make([]websitePayload, 0, len(sites))
	for _, site := range sites {
		payload = append(payload, newWebsitePayload(site))
	}
	server.respondJSON(w, http.StatusOK, payload)
}

func (server *Server) handleCreateWebsite(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL      string   `json:"url"`
		Keywords []string `json:"keywords"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	host := hostFromURL(request.URL)
	if host == "" {
		server.respondError(w, http.StatusBadRequest, "a valid website url is required")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		server.respondError(w, http.StatusInternalServerError, "could not create website")
		return
	}
	site := &domain.Website{
		ID:        id,
		UserID:    requestUser(r),
		URL:       strings.TrimSpace(request.URL),
		Domain:    host,
		Keywords:  request.Keywords,
		CreatedAt: time.Now().UTC(),
	}
	if err := server.app.Repo.CreateWebsite(site); err != nil {
		server.logger.Error("creating website", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create website")
		return
	}
	server.respondJSON(w, http.StatusCreated, newWebsitePayload(site))
}

func (server *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	site, ok := server.userWebsite(w, r)
	if !ok {
		return
	}
	var request struct {
		Seeds []string `json:"seeds"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(request.Seeds) == 0 {
		server.respondError(w, http.StatusBadRequest, "at least one seed url is required")
		return
	}

	accepted, err := server.app.Discover(r.Context(), site.ID, request.Seeds)
	if err != nil {
		server.logger.Error("running discovery", "website", site.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "discovery failed")
		return
	}
	server.respondJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}
