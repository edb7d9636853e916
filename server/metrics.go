package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/linkdripai/linkdrip/db"
	"github.com/linkdripai/linkdrip/domain"
)

func (server *Server) metricsRoutes() {
	server.mux.Handle("GET /api/metrics/{domain}", server.requireAuth(server.handleMetrics))
}

type metricsPayload struct {
	Domain             string    `json:"domain"`
	DomainAuthority    int       `json:"domain_authority"`
	PageAuthority      int       `json:"page_authority"`
	SpamScore          int       `json:"spam_score"`
	RootDomainsLinking int       `json:"root_domains_linking"`
	FetchedAt          time.Time `json:"fetched_at"`
}

func newMetricsPayload(metrics *domain.DomainMetrics) metricsPayload {
	return metricsPayload{
		Domain:             metrics.Domain,
		DomainAuthority:    metrics.DomainAuthority,
		PageAuthority:      metrics.PageAuthority,
		SpamScore:          metrics.SpamScore,
		RootDomainsLinking: metrics.RootDomainsLinking,
		FetchedAt:          metrics.FetchedAt,
	}
}

// handleMetrics serves cached Moz metrics for a domain, fetching on a cache
// miss when a Moz client is configured.
func (server *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	host := r.PathValue("domain")
	if host == "" {
		server.respondError(w, http.StatusBadRequest, "a domain is required")
		return
	}

	metrics, err := server.app.Repo.GetMetrics(host)
	if err == nil {
		server.respondJSON(w, http.StatusOK, newMetricsPayload(metrics))
		return
	}
	if !errors.Is(err, db.ErrNoMetricsForDomain) {
		server.logger.Error("getting metrics", "domain", host, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load metrics")
		return
	}
	if server.app.Moz == nil {
		server.respondError(w, http.StatusNotFound, "no metrics for that domain")
		return
	}

	metrics, err = server.app.Moz.Metrics(r.Context(), host)
	if err != nil {
		server.logger.Error("fetching metrics", "domain", host, "error", err)
		server.respondError(w, http.StatusBadGateway, "could not fetch metrics")
		return
	}
	if err := server.app.Repo.UpsertMetrics(metrics); err != nil {
		server.logger.Error("caching metrics", "domain", host, "error", err)
	}
	server.respondJSON(w, http.StatusOK, newMetricsPayload(metrics))
}
