package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/extension-relay/internal/domain/relay"
	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// HistoryQuery filters /api/commands/history. Zero fields are omitted.
type HistoryQuery struct {
	Command string
	Status  string
	From    time.Time
	To      time.Time
	Limit   int
}

func (q HistoryQuery) values() url.Values {
	v := url.Values{}
	if q.Command != "" {
		v.Set("command", q.Command)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.UTC().Format(time.RFC3339Nano))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.UTC().Format(time.RFC3339Nano))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Commands lists catalog commands, optionally limited to one category
func (c *Client) Commands(ctx context.Context, category string) ([]types.CommandInfo, error) {
	q := url.Values{}
	if category != "" {
		q.Set("type", category)
	}
	var out struct {
		Commands []types.CommandInfo `json:"commands"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/commands/list", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Commands, nil
}

// History returns execution records, newest first
func (c *Client) History(ctx context.Context, q HistoryQuery) ([]relay.Record, error) {
	var out struct {
		History []relay.Record `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/commands/history", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// ClearHistory removes completed records for command (all when empty)
// started before before (no bound when zero). Returns the number removed.
func (c *Client) ClearHistory(ctx context.Context, command string, before time.Time) (int, error) {
	q := url.Values{}
	if command != "" {
		q.Set("command", command)
	}
	if !before.IsZero() {
		q.Set("before", before.UTC().Format(time.RFC3339Nano))
	}
	var out struct {
		Cleared int `json:"cleared"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/commands/history", q, nil, &out); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

// Stats returns per-command statistics over rng (1h, 24h, 7d or 30d). With
// a command name the map holds that command only.
func (c *Client) Stats(ctx context.Context, command, rng string) (map[string]types.CommandStats, error) {
	q := url.Values{}
	if rng != "" {
		q.Set("range", rng)
	}
	if command == "" {
		var out struct {
			Stats map[string]types.CommandStats `json:"stats"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/commands/stats", q, nil, &out); err != nil {
			return nil, err
		}
		return out.Stats, nil
	}

	q.Set("command", command)
	var out struct {
		Stats types.CommandStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/commands/stats", q, nil, &out); err != nil {
		return nil, err
	}
	return map[string]types.CommandStats{command: out.Stats}, nil
}

// ResetStats resets statistics for command, or all when empty
func (c *Client) ResetStats(ctx context.Context, command string) error {
	q := url.Values{}
	if command != "" {
		q.Set("command", command)
	}
	return c.do(ctx, http.MethodDelete, "/api/commands/stats", q, nil, nil)
}

// Reload asks the relay to rebuild its catalog from disk
func (c *Client) Reload(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/commands/reload", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// StorageData returns storage filtered to one type and, optionally, keys
func (c *Client) StorageData(ctx context.Context, storageType string, keys []string) (map[string]interface{}, error) {
	q := url.Values{}
	if storageType != "" {
		q.Set("type", storageType)
	}
	if len(keys) > 0 {
		q.Set("keys", strings.Join(keys, ","))
	}
	var out struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/storage/data", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Peer reports the relay's peer session
func (c *Client) Peer(ctx context.Context) (types.PeerStatus, error) {
	var out struct {
		Peer types.PeerStatus `json:"peer"`
	}
	err := c.do(ctx, http.MethodGet, "/api/peer", nil, nil, &out)
	return out.Peer, err
}

// Health returns the relay health document
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isTimeout(err error) bool {
	return errors.Is(err, types.ErrTimeout)
}
