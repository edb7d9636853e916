package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/linkdripai/linkdrip/db"
	"github.com/linkdripai/linkdrip/domain"
)

// sessionTTL is how long an issued token stays valid.
const sessionTTL = 24 * time.Hour

type contextKey string

const userIDKey contextKey = "linkdrip.userID"

func (server *Server) authRoutes() {
	server.mux.HandleFunc("POST /api/auth/register", server.handleRegister)
	server.mux.HandleFunc("POST /api/auth/login", server.handleLogin)
	server.mux.Handle("GET /api/auth/me", server.requireAuth(server.handleMe))
}

// sessionClaims are the JWT claims carried by a session token. The subject
// is the user ID.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// issueToken signs a session token for the user.
func (server *Server) issueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    "linkdrip",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
		Email: user.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(server.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing session token : %w", err)
	}
	return signed, nil
}

// parseToken validates a session token and returns the user ID it carries.
func (server *Server) parseToken(raw string) (uuid.UUID, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return server.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing session token : %w", err)
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid session token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing token subject : %w", err)
	}
	return userID, nil
}

// requireAuth rejects requests without a valid bearer token and injects the
// authenticated user ID into the request context.
func (server *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			server.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := server.parseToken(raw)
		if err != nil {
			server.respondError(w, http.StatusUnauthorized, "invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

// requestUser returns the authenticated user ID from the request context.
func requestUser(r *http.Request) uuid.UUID {
	userID, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return userID
}

// userPayload is the safe subset of a user returned by the API.
type userPayload struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Onboarding string `json:"onboarding"`
}

func newUserPayload(user *domain.User) userPayload {
	return userPayload{
		ID:         user.ID.String(),
		Email:      user.Email,
		Name:       user.Name,
		Onboarding: user.Onboarding,
	}
}

func (server *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	request.Email = strings.ToLower(strings.TrimSpace(request.Email))
	if request.Email == "" || !strings.Contains(request.Email, "@") {
		server.respondError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(request.Password) < 8 {
		server.respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := server.app.Repo.GetUserByEmail(request.Email); err == nil {
		server.respondError(w, http.StatusConflict, "an account with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
	if err != nil {
		server.logger.Error("hashing password", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create account")
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		server.respondError(w, http.StatusInternalServerError, "could not create account")
		return
	}
	user := &domain.User{
		ID:           id,
		Email:        request.Email,
		Name:         strings.TrimSpace(request.Name),
		PasswordHash: string(hash),
		Onboarding:   "website",
		CreatedAt:    time.Now().UTC(),
	}
	if err := server.app.Repo.CreateUser(user); err != nil {
		server.logger.Error("creating user", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	token, err := server.issueToken(user)
	if err != nil {
		server.logger.Error("issuing token", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	server.respondJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  newUserPayload(user),
	})
}

func (server *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &request); err != nil {
		server.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := server.app.Repo.GetUserByEmail(strings.ToLower(strings.TrimSpace(request.Email)))
	if err != nil {
		if errors.Is(err, db.ErrNoUser) {
			server.respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		server.logger.Error("looking up user", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(request.Password)); err != nil {
		server.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := server.issueToken(user)
	if err != nil {
		server.logger.Error("issuing token", "error", err)
		server.respondError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	server.respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newUserPayload(user),
	})
}

func (server *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := server.app.Repo.GetUser(requestUser(r))
	if err != nil {
		server.respondError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	server.respondJSON(w, http.StatusOK, newUserPayload(user))
}
