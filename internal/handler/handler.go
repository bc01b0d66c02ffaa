package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coursecart/internal/auth"
	"coursecart/internal/model"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// fieldError is one entry of a registration field error list.
type fieldError struct {
	UserMessage string `json:"user_message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.GetReqID(r.Context()),
	})
}

// statusFor maps a domain error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	default:
		// business-rule conflicts are reported as bad requests
		return http.StatusBadRequest
	}
}

// writeServiceError translates a service error into a response. Domain,
// OAuth and field errors are shown to the caller; anything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, r, statusFor(domainErr.Kind), domainErr.Code, domainErr.Message, logger)
		return
	}

	var oauthErr *model.OAuthError
	if errors.As(err, &oauthErr) {
		logger.Warn().Str("code", oauthErr.Code).Str("error", oauthErr.Description).Msg("token request rejected")
		writeJSON(w, http.StatusBadRequest, oauthErr)
		return
	}

	var fieldErrs *model.FieldErrors
	if errors.As(err, &fieldErrs) {
		status := http.StatusBadRequest
		if fieldErrs.Conflict {
			status = http.StatusConflict
		}
		logger.Warn().Str("error", fieldErrs.Error()).Int("status", status).Msg("registration rejected")

		body := make(map[string][]fieldError, len(fieldErrs.Fields))
		for name, messages := range fieldErrs.Fields {
			for _, msg := range messages {
				body[name] = append(body[name], fieldError{UserMessage: msg})
			}
		}
		writeJSON(w, status, body)
		return
	}

	logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("unexpected service error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", logger)
		return false
	}
	return true
}

// principal returns the authenticated caller, writing a 403 when there is none.
func principal(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (*auth.Principal, bool) {
	p := auth.PrincipalFrom(r.Context())
	if p == nil {
		writeServiceError(w, r, model.ErrLoginRequired, logger)
		return nil, false
	}
	return p, true
}

// pathID parses an int64 URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, raw, name string, logger zerolog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid "+name, logger)
		return 0, false
	}
	return id, true
}
