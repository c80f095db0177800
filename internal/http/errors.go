package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
	"github.com/kjstillabower/user-weather-service/internal/observability"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Timestamp        string            `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

const unexpectedErrorMessage = "An unexpected error occurred"

// mapError translates err into status, label and client-facing message.
// The switch covers every apperror.Kind; anything else is a 500.
func mapError(err error) (status int, label, message string, fields map[string]string) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "Internal Server Error", unexpectedErrorMessage, nil
	}
	switch appErr.Kind {
	case apperror.NotFound:
		return http.StatusNotFound, "User Not Found", appErr.Message, nil
	case apperror.AlreadyExists:
		return http.StatusConflict, "User Already Exists", appErr.Message, nil
	case apperror.ValidationFailure:
		return http.StatusBadRequest, "Validation Failed", "Invalid input data", appErr.Fields
	case apperror.InvalidInput:
		return http.StatusBadRequest, "Invalid Argument", appErr.Message, nil
	case apperror.ConflictingState:
		msg := appErr.Message
		if msg == "" {
			msg = "Operation not allowed in current state"
		}
		return http.StatusConflict, "Invalid State", msg, nil
	case apperror.MalformedRequest:
		return http.StatusBadRequest, "Invalid Request Body", "Request body is malformed or missing", nil
	case apperror.InvalidParameter:
		return http.StatusBadRequest, "Invalid Parameter Type", appErr.Message, nil
	case apperror.StorageConstraintViolation:
		return http.StatusConflict, "Data Integrity Violation", "Data constraint violation occurred", nil
	case apperror.RouteNotFound:
		return http.StatusNotFound, "Not Found", appErr.Message, nil
	case apperror.MethodNotAllowed:
		return http.StatusMethodNotAllowed, "Method Not Allowed", appErr.Message, nil
	case apperror.RateLimited:
		return http.StatusTooManyRequests, "Too Many Requests", appErr.Message, nil
	case apperror.Unclassified:
		return http.StatusInternalServerError, "Internal Server Error", unexpectedErrorMessage, nil
	default:
		return http.StatusInternalServerError, "Internal Server Error", unexpectedErrorMessage, nil
	}
}

// writeError maps err, logs it once and writes the error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, label, message, fields := mapError(err)
	kind := apperror.KindOf(err)

	logger := observability.LoggerFromContext(r.Context(), nil)
	logFields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("kind", kind.String()),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", logFields...)
	} else {
		logger.Warn("request rejected", logFields...)
	}
	observability.ErrorResponsesTotal.WithLabelValues(kind.String(), strconv.Itoa(status)).Inc()

	writeJSON(w, status, errorResponse{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Status:           status,
		Error:            label,
		Message:          message,
		ValidationErrors: fields,
	})
}
