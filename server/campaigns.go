package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip/domain"
)

func (server *Server) campaignRoutes() {
	server.mux.Handle("GET /api/campaigns", server.requireAuth(server.handleListCampaigns))
	server.mux.Handle("POST /api/campaigns", server.requireAuth(server.handleCreateCampaign))
	server.mux.Handle("PUT /api/campaigns/{id}", server.requireAuth(server.handleUpdateCampaign))
	server.mux.Handle("DELETE /api/campaigns/{id}", server.requireAuth(server.handleDeleteCampaign))
	server.mux.Handle("GET /api/campaigns/{id}/prospects", server.requireAuth(server.handleCampaignProspects))
	server.mux.Handle("POST /api/campaigns/{id}/prospects", server.requireAuth(server.handleLinkProspect))
}

type campaignPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func newCampaignPayload(campaign *domain.Campaign) campaignPayload {
	return campaignPayload{
		ID:          campaign.ID.String(),
		Name:        campaign.Name,
		Description: campaign.Description,
	}
}

// userCampaign resolves a campaign ID from the path and checks ownership.
func (server *Server) userCampaign(w http.ResponseWriter, r *http.Request) (*domain.Campaign, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "invalid campaign id")
		return nil, false
	}
	campaigns, err := server.app.Repo.GetCampaigns(requestUser(r))
	if err != nil {
		server.logger.Error("listing campaigns", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not load campaign")
		return nil, false
	}
	for _, campaign := range campaigns {
		if campaign.ID == id {
			return campaign, true
		}
	}
	server.respondError(w, http.StatusNotFound, "campaign not found")
	return nil, false
}

func (server *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := server.app.Repo.GetCampaigns(requestUser(r))
	if err != nil {
		server.logger.Error("listing campaigns", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not list campaigns")
		return
	}
	payload := make([]campaignPayload, 0, len(campaigns))
	for _, campaign := range campaigns {
		payload = append(payload, newCampaignPayload(campaign))
	}
	server.respondJSON(w, http.StatusOK, payload)
}

func (server *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(request.Name) == "" {
		server.respondError(w, http.StatusBadRequest, "a campaign name is required")
		return
	}

	id, err := server.app.Repo.CreateCampaign(requestUser(r), request.Name, request.Description)
	if err != nil {
		server.logger.Error("creating campaign", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create campaign")
		return
	}
	server.respondJSON(w, http.StatusCreated, campaignPayload{
		ID:          id.String(),
		Name:        request.Name,
		Description: request.Description,
	})
}

func (server *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := server.userCampaign(w, r)
	if !ok {
		return
	}
	var request struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(request.Name) == "" {
		server.respondError(w, http.StatusBadRequest, "a campaign name is required")
		return
	}
	if err := server.app.Repo.UpdateCampaign(campaign.ID, request.Name, request.Description); err != nil {
		server.logger.Error("updating campaign", "campaign", campaign.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not update campaign")
		return
	}
	server.respondJSON(w, http.StatusOK, campaignPayload{
		ID:          campaign.ID.String(),
		Name:        request.Name,
		Description: request.Description,
	})
}

func (server *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, ok := server.userCampaign(w, r)
	if !ok {
		return
	}
	if err := server.app.Repo.DeleteCampaign(campaign.ID); err != nil {
		server.logger.Error("deleting campaign", "campaign", campaign.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not delete campaign")
		return
	}
	server.respondJSON(w, http.StatusNoContent, nil)
}

func (server *Server) handleCampaignProspects(w http.ResponseWriter, r *http.Request) {
	campaign, ok := server.userCampaign(w, r)
	if !ok {
		return
	}
	prospects, err := server.app.Repo.GetCampaignProspects(campaign.ID)
	if err != nil {
		server.logger.Error("listing campaign prospects", "campaign", campaign.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not list campaign prospects")
		return
	}
	payload := make([]prospectPayload, 0, len(prospects))
	for _, prospect := range prospects {
		payload = append(payload, newProspectPayload(prospect, false))
	}
	server.respondJSON(w, http.StatusOK, payload)
}

func (server *Server) handleLinkProspect(w http.ResponseWriter, r *http.Request) {
	campaign, ok := server.userCampaign(w, r)
	if !ok {
		return
	}
	var request struct {
		ProspectID string `json:"prospect_id"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	prospectID, err := uuid.Parse(request.ProspectID)
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "invalid prospect id")
		return
	}
	if err := server.app.Repo.LinkProspectToCampaign(prospectID, campaign.ID); err != nil {
		server.logger.Error("linking prospect", "campaign", campaign.ID, "prospect", prospectID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not link prospect")
		return
	}
	server.respondJSON(w, http.StatusNoContent, nil)
}
