package server

import "net/http"

func (server *Server) statsRoutes() {
	server.mux.Handle("GET /api/stats", server.requireAuth(server.handleStats))
}

type statsPayload struct {
	Prospects int `json:"prospects"`
	Unlocked  int `json:"unlocked"`
	Emails    int `json:"emails"`
	Campaigns int `json:"campaigns"`
}

// handleStats aggregates dashboard counters across the user's websites.
func (server *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	sites, err := server.app.Repo.GetWebsitesForUser(userID)
	if err != nil {
		server.logger.Error("listing websites", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load stats")
		return
	}

	var payload statsPayload
	for _, site := range sites {
		prospects, err := server.app.Repo.CountProspects(site.ID)
		if err != nil {
			server.logger.Error("counting prospects", "website", site.ID, "error", err)
			server.respondError(w, http.StatusInternalServerError, "could not load stats")
			return
		}
		unlocked, err := server.app.Repo.CountUnlocked(site.ID)
		if err != nil {
			server.logger.Error("counting unlocked", "website", site.ID, "error", err)
			server.respondError(w, http.StatusInternalServerError, "could not load stats")
			return
		}
		payload.Prospects += prospects
		payload.Unlocked += unlocked
	}

	payload.Emails, err = server.app.Repo.CountEmails(userID)
	if err != nil {
		server.logger.Error("counting emails", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load stats")
		return
	}
	payload.Campaigns, err = server.app.Repo.CountCampaigns(userID)
	if err != nil {
		server.logger.Error("counting campaigns", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load stats")
		return
	}

	server.respondJSON(w, http.StatusOK, payload)
}
