package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"taskforest/app/errors"
	"taskforest/app/middleware"
	"taskforest/app/models"
)

type errorResponse struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidReservedID:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeParentNotFound, errors.ErrCodeUserNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a coded error to its HTTP status. Internal failures are
// logged and their cause is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		if code == "" {
			code = errors.ErrCodeStoreFailure
		}
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   msg,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// Unauthorized answers requests that arrive without an identity.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Code:      errors.ErrCodeUnauthorized,
		Message:   "missing user identity",
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request payload")
	}
	return nil
}

func currentUser(r *http.Request) (string, error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return "", errors.New(errors.ErrCodeUnauthorized, "missing user identity")
	}
	return user, nil
}

// pageFromQuery reads optional offset and limit query parameters.
func pageFromQuery(r *http.Request) (models.Page, error) {
	var p models.Page
	q := r.URL.Query()
	for key, dst := range map[string]*int{"offset": &p.Offset, "limit": &p.Limit} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer", key)
		}
		*dst = n
	}
	return p, nil
}
