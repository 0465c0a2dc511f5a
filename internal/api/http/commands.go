package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/domain/command"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// Execute runs one command through the relay
func (h *Handlers) Execute(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	if req.Params == nil {
		req.Params = map[string]interface{}{}
	}

	result, err := h.exec.Run(c.Request.Context(), req)
	if err != nil {
		fail(c, req.Command, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"command":   req.Command,
		"params":    req.Params,
		"result":    result,
		"timestamp": h.timestamp(),
	})
}

// timeoutParam resolves an optional timeout in seconds. Out-of-range values
// are rejected with 400.
func (h *Handlers) timeoutParam(c *gin.Context, seconds *int) (time.Duration, bool) {
	timeout, err := h.exec.ResolveTimeout(seconds)
	if err != nil {
		fail(c, "", err)
		return 0, false
	}
	return timeout, true
}

// ListCommands lists the catalog. ?type= filters by category;
// ?format=simple drops scripts, params and statistics.
func (h *Handlers) ListCommands(c *gin.Context) {
	category := command.Category(c.Query("type"))
	if category != "" && !category.Valid() {
		badRequest(c, fmt.Sprintf("Unknown command type %q", category))
		return
	}

	infos := h.exec.ListCommands(category)

	var commands interface{} = infos
	if c.DefaultQuery("format", "full") == "simple" {
		simple := make([]gin.H, 0, len(infos))
		for _, info := range infos {
			simple = append(simple, gin.H{
				"name":        info.Name,
				"description": info.Description,
				"type":        info.Type,
			})
		}
		commands = simple
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"commands":  commands,
		"count":     len(infos),
		"version":   h.exec.Catalog().Fingerprint(),
		"timestamp": h.timestamp(),
	})
}

// Reload rebuilds the catalog from built-ins and command files
func (h *Handlers) Reload(c *gin.Context) {
	var (
		count int
		err   error
	)
	if h.loader != nil {
		count, err = h.loader.Reload(h.exec.Catalog())
	} else {
		builtins := command.Builtins()
		err = h.exec.Catalog().Reload(builtins)
		count = len(builtins)
	}
	if err != nil {
		h.logger.Warn("Catalog reload failed", zap.Error(err))
		fail(c, "", err)
		return
	}

	version := h.exec.Catalog().Fingerprint()
	h.logger.Info("Catalog reloaded", zap.Int("commands", count), zap.String("version", version))
	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"count":     count,
		"version":   version,
		"timestamp": h.timestamp(),
	})
}
