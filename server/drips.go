package server

import (
	"net/http"

	"github.com/linkdripai/linkdrip"
)

func (server *Server) dripRoutes() {
	server.mux.Handle("GET /api/drips", server.requireAuth(server.handleDrips))
}

// handleDrips returns today's drip feed, topping it up to the plan quota on
// first read.
func (server *Server) handleDrips(w http.ResponseWriter, r *http.Request) {
	drips, err := server.app.AllocateDrips(r.Context(), requestUser(r), linkdrip.Today())
	if err != nil {
		server.logger.Error("allocating drips", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load today's drips")
		return
	}
	payload := make([]prospectPayload, 0, len(drips))
	for _, prospect := range drips {
		payload = append(payload, newProspectPayload(prospect, false))
	}
	server.respondJSON(w, http.StatusOK, payload)
}
