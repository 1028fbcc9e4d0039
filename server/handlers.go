package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-auth-gateway/auth"
)

// SignUpHandler registers a new user with the identity provider.
func (s *Server) SignUpHandler() http.HandlerFunc {
	type signUpRequest struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	type signUpData struct {
		Username string `json:"username"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req signUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		signUp := auth.SignUpRequest{Email: req.Email, Username: req.Username, Password: req.Password}
		if err := s.validator.ValidateSignUp(signUp); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		username, err := s.auth.SignUp(r.Context(), signUp)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successEnvelope{
			Success: true,
			Message: "User signed up successfully, please confirm your account.",
			Data:    signUpData{Username: username},
		})
	}
}

// LoginHandler authenticates a user and establishes a session: the refresh
// token goes into an HTTP-only cookie and the body carries the tokens.
func (s *Server) LoginHandler() http.HandlerFunc {
	type loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		creds := auth.Credentials{Username: req.Username, Password: req.Password}
		if err := s.validator.ValidateCredentials(creds); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		session, err := s.auth.Login(r.Context(), creds)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		SetRefreshTokenCookie(w, r, session.RefreshToken)
		writeJSON(w, http.StatusOK, sessionPayloadFrom(session))
	}
}

// ConfirmHandler completes registration with the emailed confirmation code.
func (s *Server) ConfirmHandler() http.HandlerFunc {
	type confirmRequest struct {
		Username string `json:"username"`
		Code     string `json:"code"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if err := s.validator.ValidateUsername(req.Username); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		if err := s.validator.ValidateConfirmationCode(req.Code); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		if err := s.auth.Confirm(r.Context(), req.Username, req.Code); err != nil {
			writeAuthError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successEnvelope{
			Success: true,
			Message: "User confirmed successfully.",
		})
	}
}

// NewPasswordHandler completes a new-password challenge raised at login.
func (s *Server) NewPasswordHandler() http.HandlerFunc {
	type newPasswordRequest struct {
		Username         string `json:"username"`
		NewPassword      string `json:"new_password"`
		ChallengeSession string `json:"challenge_session"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req newPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		if req.Username == "" || req.NewPassword == "" || req.ChallengeSession == "" {
			writeBadRequest(w, "username, new_password and challenge_session are required")
			return
		}
		session, err := s.auth.CompleteNewPassword(r.Context(), req.Username, req.NewPassword, req.ChallengeSession)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		SetRefreshTokenCookie(w, r, session.RefreshToken)
		writeJSON(w, http.StatusOK, sessionPayloadFrom(session))
	}
}

// MeHandler returns the identity claims of the bearer token. RequireAuth
// guarantees the claims are present.
func (s *Server) MeHandler() http.HandlerFunc {
	type userData struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	type meResponse struct {
		User userData `json:"user"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or missing bearer token"}`))
			return
		}
		writeJSON(w, http.StatusOK, meResponse{User: userData{
			ID:       claims.Subject,
			Email:    claims.Email,
			Username: claims.Username,
		}})
	}
}
