package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/server/services"
)

const refreshCookieName = "refreshToken"

// SessionManager is the session-service surface the handlers consume.
// Implemented by *services.SessionService.
type SessionManager interface {
	Register(ctx context.Context, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Logout(ctx context.Context, refreshToken, accessToken string) error
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	pair, err := s.sessions.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorEmailInUse) {
			writeError(w, http.StatusBadRequest, "email already in use")
			return
		}
		s.logger.Error(r.Context(), "register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	pair, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorInvalidCredentials) {
			// Generic message: no oracle for which half was wrong.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenInvalid) {
			writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		s.logger.Error(r.Context(), "refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse{AccessToken: pair.AccessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = cookie.Value
	}
	accessToken := extractBearer(r.Header.Get("Authorization"))

	if err := s.sessions.Logout(r.Context(), refreshToken, accessToken); err != nil {
		s.logger.Error(r.Context(), "logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out successfully"})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := s.sessions.ChangePassword(r.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, common.ErrorInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "current password is incorrect")
			return
		}
		s.logger.Error(r.Context(), "change password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed successfully"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return credentialsRequest{}, false
	}
	return req, true
}

// setRefreshCookie delivers the refresh token as a scoped credential:
// httpOnly, strict same-site, path-restricted to the auth subtree, and with
// the cookie lifetime matching the record's real validity window.
func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		MaxAge:   s.refreshCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError emits the uniform failure envelope. Messages stay generic;
// root causes go to server-side logs only.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}
