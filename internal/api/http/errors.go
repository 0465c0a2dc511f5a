package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// statusFor maps the relay error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var peerErr *types.PeerExecutionError
	switch {
	case errors.As(err, &peerErr):
		return http.StatusInternalServerError
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrTimeout):
		return http.StatusRequestTimeout
	case errors.Is(err, types.ErrDisconnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes an error body. Peer execution errors carry the peer's message
// verbatim under "error"; everything else is a "message".
func fail(c *gin.Context, command string, err error) {
	var peerErr *types.PeerExecutionError
	if errors.As(err, &peerErr) {
		body := gin.H{"status": types.StatusError, "error": peerErr.Message}
		if command != "" {
			body["command"] = command
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"status": types.StatusError, "message": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": types.StatusError, "message": message})
}
