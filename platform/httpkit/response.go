// Package httpkit holds the shared HTTP plumbing: response helpers, auth
// and rate-limit middleware, and the caller identity abstraction.
package httpkit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fieldops_backend/platform/apperr"
)

// ErrorResponse is the error payload shape every endpoint returns.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes a JSON body with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error writes an ErrorResponse with the given status.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK writes the payload with 200.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// HandleError writes the response for a service error and reports whether
// one was written. Typed errors pick their status via Kind; anything else
// falls back to 400 so stray errors never leak a 500 with internals.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
