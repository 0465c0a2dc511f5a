package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/extension-relay/internal/domain/relay"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

const defaultHistoryLimit = 100

// History queries execution history
func (h *Handlers) History(c *gin.Context) {
	filter := relay.Filter{
		Command: c.Query("command"),
		Status:  c.Query("status"),
		Limit:   defaultHistoryLimit,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			badRequest(c, "Limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	var err error
	if filter.From, err = parseDate(c.Query("from")); err != nil {
		badRequest(c, "Invalid from date: "+err.Error())
		return
	}
	if filter.To, err = parseDate(c.Query("to")); err != nil {
		badRequest(c, "Invalid to date: "+err.Error())
		return
	}

	records := h.exec.History().Query(filter)
	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"history":   records,
		"count":     len(records),
		"timestamp": h.timestamp(),
	})
}

// ClearHistory removes records by command and/or age
func (h *Handlers) ClearHistory(c *gin.Context) {
	before, err := parseDate(c.Query("before"))
	if err != nil {
		badRequest(c, "Invalid before date: "+err.Error())
		return
	}

	removed := h.exec.History().Clear(c.Query("command"), before)
	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"cleared":   removed,
		"message":   fmt.Sprintf("Cleared %d history records", removed),
		"timestamp": h.timestamp(),
	})
}

// Stats reports per-command execution statistics. ?range= accepts 1h, 24h,
// 7d and 30d; anything else means 24h.
func (h *Handlers) Stats(c *gin.Context) {
	rng := c.DefaultQuery("range", "24h")
	switch rng {
	case "1h", "24h", "7d", "30d":
	default:
		rng = "24h"
	}
	since := relay.RangeSince(rng, h.clock.Now())
	name := c.Query("command")

	if name != "" {
		if _, err := h.exec.Catalog().Get(name); err != nil {
			fail(c, name, err)
			return
		}
	}

	stats := h.exec.History().Stats(name, since)
	if name != "" {
		c.JSON(http.StatusOK, gin.H{
			"status":    types.StatusSuccess,
			"command":   name,
			"stats":     stats[name],
			"range":     rng,
			"timestamp": h.timestamp(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"stats":     stats,
		"range":     rng,
		"timestamp": h.timestamp(),
	})
}

// ResetStats zeroes statistics for one command or all of them
func (h *Handlers) ResetStats(c *gin.Context) {
	name := c.Query("command")
	h.exec.History().ResetStats(name)

	message := "Statistics reset for all commands"
	if name != "" {
		message = fmt.Sprintf("Statistics reset for %s", name)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    types.StatusSuccess,
		"message":   message,
		"timestamp": h.timestamp(),
	})
}

// parseDate accepts RFC 3339 timestamps or plain dates. Empty means zero.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO date", raw)
}
