package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"coursecart/internal/auth"
	"coursecart/internal/form"
	"coursecart/internal/model"
	"coursecart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// pipelineCookie carries the third-party-auth pipeline token between the
// provider callback and the registration page.
const pipelineCookie = "tpa_pipeline"

// LoginRequest is the body of POST /user_api/v1/account/login_session.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// EmailOptInRequest is the body of POST /user_api/v1/preferences/email_opt_in.
type EmailOptInRequest struct {
	CourseID   string          `json:"course_id"`
	EmailOptIn json.RawMessage `json:"email_opt_in"`
}

// TokenResponse is the body of a successful access token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
}

// RegistrationRequiredResponse is returned by the exchange when the provider
// account is not linked to a user yet.
type RegistrationRequiredResponse struct {
	RegistrationRequired bool   `json:"registration_required"`
	PipelineToken        string `json:"pipeline_token"`
	RegistrationURL      string `json:"registration_url"`
}

// AccountHandler serves login, registration and preference requests.
type AccountHandler struct {
	service      service.AccountService
	secureCookie bool
	logger       zerolog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(service service.AccountService, secureCookie bool, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		service:      service,
		secureCookie: secureCookie,
		logger:       logger.With().Str("handler", "account").Logger(),
	}
}

// LoginForm handles GET /user_api/v1/account/login_session.
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.LoginForm())
}

// Login handles POST /user_api/v1/account/login_session.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	session, err := h.service.Login(r.Context(), login, req.Password)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	cookie := &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if req.Remember {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(w, cookie)

	writeJSON(w, http.StatusOK, session)
}

// pipelineToken reads the third-party-auth pipeline token from the query
// string or its cookie.
func pipelineToken(r *http.Request) string {
	if token := r.URL.Query().Get(pipelineCookie); token != "" {
		return token
	}
	if c, err := r.Cookie(pipelineCookie); err == nil {
		return c.Value
	}
	return ""
}

// RegistrationForm handles GET /user_api/v1/account/registration.
func (h *AccountHandler) RegistrationForm(w http.ResponseWriter, r *http.Request) {
	desc, err := h.service.RegistrationForm(r.Context(), pipelineToken(r))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// Register handles POST /user_api/v1/account/registration.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegistrationRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	req.PipelineToken = pipelineToken(r)

	if _, err := h.service.Register(r.Context(), &req); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ExchangeAccessToken handles POST /oauth2/exchange_access_token/{backend}.
// The body is form encoded with access_token and client_id.
func (h *AccountHandler) ExchangeAccessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeServiceError(w, r, model.NewOAuthError(model.OAuthInvalidRequest, "malformed request body"), h.logger)
		return
	}

	result, err := h.service.ExchangeAccessToken(r.Context(), chi.URLParam(r, "backend"),
		r.PostForm.Get("access_token"), r.PostForm.Get("client_id"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	if result.Session == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     pipelineCookie,
			Value:    result.PipelineToken,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
		writeJSON(w, http.StatusOK, RegistrationRequiredResponse{
			RegistrationRequired: true,
			PipelineToken:        result.PipelineToken,
			RegistrationURL:      form.RegistrationURL,
		})
		return
	}

	session := result.Session
	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(session.ExpiresAt).Seconds()),
		UserID:      session.UserID,
		Username:    session.Username,
	})
}

// PasswordResetForm handles GET /user_api/v1/account/password_reset.
func (h *AccountHandler) PasswordResetForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.PasswordResetForm())
}

// EmailOptIn handles POST /user_api/v1/preferences/email_opt_in.
func (h *AccountHandler) EmailOptIn(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.logger)
	if !ok {
		return
	}

	var req EmailOptInRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if req.CourseID == "" || len(req.EmailOptIn) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "course_id and email_opt_in are required", h.logger)
		return
	}

	optIn := strings.Trim(strings.TrimSpace(string(req.EmailOptIn)), `"`)
	if err := h.service.SetEmailOptIn(r.Context(), p.UserID, req.CourseID, optIn); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusOK)
}
