package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/rubric"
)

// Error codes carried in the envelope.
const (
	CodeMissingOrg = "missing_org"
	CodeBadRequest = "bad_request"
	CodeInvalidID  = "invalid_id"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeMalformed  = "malformed"
	CodeInvalid    = "validation_failed"
	CodeInternal   = "internal"
)

// APIError is the body of an error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope and aborts the request.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	env := ErrorEnvelope{Error: APIError{Message: msg, Code: code}}
	if v, ok := document.AsValidationErrors(err); ok {
		env.Error.Details = v
	}
	c.AbortWithStatusJSON(status, env)
}

// RespondOK writes payload as JSON with status 200.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// classify maps a store or document error to a status and code.
func classify(err error) (int, string) {
	if _, ok := document.AsValidationErrors(err); ok {
		return http.StatusUnprocessableEntity, CodeInvalid
	}
	switch {
	case errors.Is(err, rubric.ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidID
	case errors.Is(err, rubric.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, rubric.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, rubric.ErrMalformed):
		return http.StatusBadRequest, CodeMalformed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
