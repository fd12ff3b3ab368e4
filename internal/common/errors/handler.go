// internal/common/errors/handler.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"
)

// ErrorHandler writes StandardErrors as JSON responses.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

type errorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
		Details string    `json:"details,omitempty"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// WriteError logs err and writes it to w. Details are only exposed for 4xx
// responses; server side failures return the code and message alone.
func (h *ErrorHandler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := Normalize(err)
	status := HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"method":        r.Method,
			"path":          r.URL.Path,
			"errorCode":     string(stdErr.Code),
			"details":       stdErr.Details,
			"retryable":     stdErr.Retryable,
			"errorCategory": GetErrorCategory(stdErr.Code),
		})
	}

	var resp errorResponse
	resp.Error.Code = stdErr.Code
	resp.Error.Message = stdErr.Message
	resp.Detail = stdErr.Message
	if status < http.StatusInternalServerError {
		resp.Error.Details = stdErr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
