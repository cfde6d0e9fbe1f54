package api

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/vclink/vclink-bridge/internal/models"
    "github.com/vclink/vclink-bridge/internal/storage"
)

// ========== Auth handlers ==========

// HandleLogin handles user login
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
    var req struct {
        Email    string `json:"email" validate:"required,email"`
        Password string `json:"password" validate:"required"`
    }

    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, "invalid request body")
        return
    }

    if err := s.validator.Validate(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, err.Error())
        return
    }

    // Get user
    user, err := s.store.GetUserByEmail(r.Context(), req.Email)
    if err != nil {
        s.respondError(w, http.StatusUnauthorized, "invalid credentials")
        return
    }

    // Verify password
    if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
        s.respondError(w, http.StatusUnauthorized, "invalid credentials")
        return
    }

    if !user.IsActive {
        s.respondError(w, http.StatusForbidden, "account is disabled")
        return
    }

    // Generate tokens
    accessToken, refreshToken, err := s.auth.GenerateTokenPair(user)
    if err != nil {
        log.Error().Err(err).Msg("Failed to generate tokens")
        s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
        return
    }

    if err := s.store.UpdateUserLastLogin(r.Context(), user.ID, time.Now()); err != nil {
        log.Warn().Err(err).Str("email", user.Email).Msg("Failed to record last login")
    }

    s.respondJSON(w, http.StatusOK, map[string]interface{}{
        "accessToken":  accessToken,
        "refreshToken": refreshToken,
        "user":         user,
    })
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
    var req struct {
        RefreshToken string `json:"refreshToken" validate:"required"`
    }

    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, "invalid request body")
        return
    }

    if err := s.validator.Validate(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, err.Error())
        return
    }

    accessToken, refreshToken, err := s.auth.RefreshToken(req.RefreshToken, func(id uuid.UUID) (*models.User, error) {
        return s.store.GetUser(r.Context(), id)
    })
    if err != nil {
        s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
        return
    }

    s.respondJSON(w, http.StatusOK, map[string]string{
        "accessToken":  accessToken,
        "refreshToken": refreshToken,
    })
}

// HandleGetCurrentUser returns the authenticated user
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
    claims, ok := claimsFromContext(r.Context())
    if !ok {
        s.respondError(w, http.StatusUnauthorized, "not authenticated")
        return
    }

    user, err := s.store.GetUser(r.Context(), claims.UserID)
    if err != nil {
        if err == storage.ErrNotFound {
            s.respondError(w, http.StatusNotFound, "user not found")
            return
        }
        log.Error().Err(err).Msg("Failed to get user")
        s.respondError(w, http.StatusInternalServerError, "failed to get user")
        return
    }

    s.respondJSON(w, http.StatusOK, user)
}

// ========== System handlers ==========

// HandleHealth handles health check
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
    s.respondJSON(w, http.StatusOK, map[string]interface{}{
        "status":  "ok",
        "name":    s.config.Server.Name,
        "version": s.config.Server.Version,
        "time":    time.Now().UTC(),
    })
}

// HandleRoot handles the root endpoint
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
    s.respondJSON(w, http.StatusOK, map[string]string{
        "name":    "VClink Bridge API",
        "version": s.config.Server.Version,
    })
}

// ========== Response helpers ==========

// respondJSON writes a JSON response
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    if data != nil {
        if err := json.NewEncoder(w).Encode(data); err != nil {
            log.Error().Err(err).Msg("Failed to encode response")
        }
    }
}

// respondError writes an error response
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
    s.respondJSON(w, status, map[string]string{"error": message})
}
