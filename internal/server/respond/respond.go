// Package respond writes the API's JSON envelope: {message, data, status}.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"company-portal/backend/internal/apperror"
)

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
	Status  int    `json:"status"`
}

// JSON writes a success envelope. data may be nil.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Message: message, Data: data, Status: status})
}

// Error writes an error envelope. Domain errors keep their message and status;
// anything else is logged and masked as an opaque 500.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal Server Error"

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status = appErr.Status
		message = appErr.Message
	} else if logger != nil {
		logger.Error("unhandled error", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Message: message, Data: nil, Status: status})
}
