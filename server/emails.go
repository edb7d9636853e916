package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkdripai/linkdrip/domain"
)

func (server *Server) emailRoutes() {
	server.mux.Handle("GET /api/emails", server.requireAuth(server.handleListEmails))
	server.mux.Handle("POST /api/emails", server.requireAuth(server.handleCreateEmail))
	server.mux.Handle("GET /api/emails/{id}", server.requireAuth(server.handleGetEmail))
	server.mux.Handle("PUT /api/emails/{id}", server.requireAuth(server.handleUpdateEmail))
	server.mux.Handle("POST /api/emails/{id}/status", server.requireAuth(server.handleEmailStatus))
	server.mux.Handle("DELETE /api/emails/{id}", server.requireAuth(server.handleDeleteEmail))
}

type emailPayload struct {
	ID         string     `json:"id"`
	ProspectID string     `json:"prospect_id"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

func newEmailPayload(email *domain.OutreachEmail) emailPayload {
	return emailPayload{
		ID:         email.ID.String(),
		ProspectID: email.ProspectID.String(),
		Subject:    email.Subject,
		Body:       email.Body,
		Status:     email.Status,
		CreatedAt:  email.CreatedAt,
		SentAt:     email.SentAt,
	}
}

// userEmail resolves an email ID from the path and checks ownership.
func (server *Server) userEmail(w http.ResponseWriter, r *http.Request) (*domain.OutreachEmail, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		server.respondError(w, http.StatusBadRequest, "invalid email id")
		return nil, false
	}
	email, err := server.app.Repo.GetEmail(id)
	if err != nil {
		server.respondError(w, http.StatusNotFound, "email not found")
		return nil, false
	}
	if email.UserID != requestUser(r) {
		server.respondError(w, http.StatusNotFound, "email not found")
		return nil, false
	}
	return email, true
}

func (server *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	var emails []*domain.OutreachEmail
	var err error
	if raw := r.URL.Query().Get("prospect"); raw != "" {
		prospectID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			server.respondError(w, http.StatusBadRequest, "invalid prospect id")
			return
		}
		emails, err = server.app.Repo.GetEmailsForProspect(prospectID)
	} else {
		emails, err = server.app.Repo.GetEmailsForUser(requestUser(r))
	}
	if err != nil {
		server.logger.Error("listing emails", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not list emails")
		return
	}
	payload := make([]emailPayload, 0, len(emails))
	for _, email := range emails {
		payload = append(payload, newEmailPayload(email))
	}
	server.respondJSON(w, http.StatusOK, payload)
}

func (server *Server) handleCreateEmail(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ProspectID string `json:"prospect_id"`
		Subject    string `json:"subject"`
		Body       string `json:"body"`
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
	if strings.TrimSpace(request.Subject) == "" {
		server.respondError(w, http.StatusBadRequest, "a subject is required")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		server.respondError(w, http.StatusInternalServerError, "could not create email")
		return
	}
	email := &domain.OutreachEmail{
		ID:         id,
		UserID:     requestUser(r),
		ProspectID: prospectID,
		Subject:    request.Subject,
		Body:       request.Body,
		Status:     domain.EmailDraft,
		CreatedAt:  time.Now().UTC(),
	}
	if err := server.app.Repo.InsertEmail(email); err != nil {
		server.logger.Error("creating email", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create email")
		return
	}
	server.respondJSON(w, http.StatusCreated, newEmailPayload(email))
}

func (server *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	email, ok := server.userEmail(w, r)
	if !ok {
		return
	}
	server.respondJSON(w, http.StatusOK, newEmailPayload(email))
}

func (server *Server) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	email, ok := server.userEmail(w, r)
	if !ok {
		return
	}
	if email.Status != domain.EmailDraft {
		server.respondError(w, http.StatusConflict, "only drafts can be edited")
		return
	}
	var request struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := server.app.Repo.UpdateEmailDraft(email.ID, request.Subject, request.Body); err != nil {
		server.logger.Error("updating email", "email", email.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not update email")
		return
	}
	email.Subject = request.Subject
	email.Body = request.Body
	server.respondJSON(w, http.StatusOK, newEmailPayload(email))
}

// emailTransitions are the statuses a user can set on an email.
var emailTransitions = map[string]bool{
	domain.EmailSent:    true,
	domain.EmailReplied: true,
	domain.EmailBounced: true,
}

func (server *Server) handleEmailStatus(w http.ResponseWriter, r *http.Request) {
	email, ok := server.userEmail(w, r)
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
	if !emailTransitions[request.Status] {
		server.respondError(w, http.StatusBadRequest, "unsupported status transition")
		return
	}

	var sentAt *time.Time
	if request.Status == domain.EmailSent {
		now := time.Now().UTC()
		sentAt = &now
	}
	if err := server.app.Repo.UpdateEmailStatus(email.ID, request.Status, sentAt); err != nil {
		server.logger.Error("updating email status", "email", email.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not update email")
		return
	}

	// Marking an email sent or replied moves the prospect along too.
	switch request.Status {
	case domain.EmailSent:
		if err := server.app.Repo.UpdateProspectStatus(email.ProspectID, domain.StatusContacted); err != nil {
			server.logger.Error("updating prospect status", "prospect", email.ProspectID, "error", err)
		}
	case domain.EmailReplied:
		if err := server.app.Repo.UpdateProspectStatus(email.ProspectID, domain.StatusReplied); err != nil {
			server.logger.Error("updating prospect status", "prospect", email.ProspectID, "error", err)
		}
	}

	email.Status = request.Status
	email.SentAt = sentAt
	server.respondJSON(w, http.StatusOK, newEmailPayload(email))
}

func (server *Server) handleDeleteEmail(w http.ResponseWriter, r *http.Request) {
	email, ok := server.userEmail(w, r)
	if !ok {
		return
	}
	if err := server.app.Repo.DeleteEmail(email.ID); err != nil {
		server.logger.Error("deleting email", "email", email.ID, "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not delete email")
		return
	}
	server.respondJSON(w, http.StatusNoContent, nil)
}
