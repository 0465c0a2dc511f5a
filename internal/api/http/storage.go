package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/extension-relay/internal/domain/relay"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// StorageData fetches page storage, optionally narrowed by ?type= and
// ?keys=a,b
func (h *Handlers) StorageData(c *gin.Context) {
	var seconds *int
	if raw := c.Query("timeout"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid timeout parameter: "+err.Error())
			return
		}
		seconds = &v
	}
	timeout, ok := h.timeoutParam(c, seconds)
	if !ok {
		return
	}

	data, err := h.exec.StorageData(c.Request.Context(), c.Query("type"), relay.ParseKeys(c.Query("keys")), timeout)
	if err != nil {
		fail(c, relay.StorageCommand, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"data":      data,
		"timestamp": h.timestamp(),
	})
}
