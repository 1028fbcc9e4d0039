package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/idp"
)

// RefreshTokenCookie names the HTTP-only cookie that carries the refresh
// token. It is the only place the refresh token is persisted server-side.
const RefreshTokenCookie = "refresh_token"

// SetRefreshTokenCookie stores the refresh token as an HTTP-only cookie so
// that it is never readable by client-side script.
func SetRefreshTokenCookie(w http.ResponseWriter, r *http.Request, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success          bool           `json:"success"`
	ErrorCode        auth.ErrorCode `json:"error_code"`
	Message          string         `json:"message"`
	ChallengeSession string         `json:"challenge_session,omitempty"`
}

// sessionPayload is the REST response body for login, refresh and new
// password completion. The access_token field carries the identity
// provider's ID token: its audience is this app's client id and it holds
// the email and username claims the web app displays.
type sessionPayload struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func sessionPayloadFrom(session *idp.Session) sessionPayload {
	return sessionPayload{
		Email:        session.Claims.Email,
		Username:     session.Claims.Username,
		AccessToken:  session.IDToken,
		RefreshToken: session.RefreshToken,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response body")
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// writeAuthError maps a service error onto the wire taxonomy. Every auth
// failure is a 400 with a stable error_code the web app switches on.
func writeAuthError(w http.ResponseWriter, err error) {
	authErr, ok := auth.AsError(err)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			ErrorCode: auth.ErrorCodeUnhandled,
			Message:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorEnvelope{
		ErrorCode:        authErr.Code,
		Message:          authErr.Message,
		ChallengeSession: authErr.ChallengeSession,
	})
}
