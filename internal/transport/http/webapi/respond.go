// Package webapi implements the REST handlers behind /api.
package webapi

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coolwatch-server-go/internal/platform/errors"
	httptransport "coolwatch-server-go/internal/transport/http"
)

func respondSuccess(c *gin.Context, status int, data interface{}, message string) {
	httptransport.RespondSuccess(c, status, data, message)
}

func respondError(c *gin.Context, status int, message string) {
	httptransport.RespondError(c, status, message, nil)
}

// respondServiceError maps a service error onto an HTTP status. Only the
// error message crosses the wire, never operation names or causes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.IsKind(err, errors.KindAuth):
		respondError(c, http.StatusUnauthorized, clientMessage(err))
	case errors.IsKind(err, errors.KindDomain):
		respondError(c, http.StatusBadRequest, clientMessage(err))
	default:
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func clientMessage(err error) string {
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return typed.Message
	}
	return "request failed"
}
