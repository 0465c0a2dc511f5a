package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// Config holds client settings
type Config struct {
	BaseURL string
	// HTTPTimeout bounds one HTTP round trip.
	HTTPTimeout time.Duration
	// CommandTimeout is sent with each execute request, in whole seconds.
	CommandTimeout time.Duration
	// ImplicitWait is how long element lookups poll before giving up. Zero
	// checks once.
	ImplicitWait    time.Duration
	PageLoadTimeout time.Duration
	PollInterval    time.Duration

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultConfig targets a relay on localhost
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:1234",
		HTTPTimeout:     70 * time.Second,
		CommandTimeout:  30 * time.Second,
		PageLoadTimeout: 30 * time.Second,
		PollInterval:    500 * time.Millisecond,
		RetryMax:        3,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    10 * time.Second,
	}
}

// APIError is a non-2xx relay response. It unwraps to the matching sentinel
// in shared/types so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	Command    string
}

func (e *APIError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("relay returned %d for %s: %s", e.StatusCode, e.Command, e.Message)
	}
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return types.ErrNotFound
	case http.StatusBadRequest:
		return types.ErrInvalidParameters
	case http.StatusRequestTimeout:
		return types.ErrTimeout
	case http.StatusServiceUnavailable:
		return types.ErrDisconnected
	}
	return nil
}

var (
	// ErrElementNotFound is returned when a lookup finds nothing within the
	// implicit wait.
	ErrElementNotFound = fmt.Errorf("element %w", types.ErrNotFound)
	// ErrPageLoadTimeout is returned when a page does not answer within the
	// page load timeout.
	ErrPageLoadTimeout = fmt.Errorf("page load %w", types.ErrTimeout)
)

// Client talks to the relay HTTP API
type Client struct {
	resty  *resty.Client
	clock  clockwork.Clock
	logger *zap.Logger

	mu  sync.RWMutex
	cfg Config
}

// New creates a client. Transport failures and 502/504 responses are retried
// by go-retryablehttp; relay error statuses are returned as *APIError.
func New(cfg Config, logger *zap.Logger) *Client {
	return NewWithClock(cfg, logger, clockwork.NewRealClock())
}

// NewWithClock creates a client whose waits run on clock
func NewWithClock(cfg Config, logger *zap.Logger, clock clockwork.Clock) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = def.HTTPTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = def.PageLoadTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = checkRetry
	retryClient.Logger = leveledLogger{logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("User-Agent", "extension-relay-client/1.0").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(logger.Sugar())

	return &Client{resty: restyClient, clock: clock, logger: logger, cfg: cfg}
}

// checkRetry retries transport errors and gateway failures only. Relay
// statuses carry command outcomes and must not be replayed.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// SetImplicitWait sets how long element lookups poll
func (c *Client) SetImplicitWait(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.ImplicitWait = d
}

// SetPageLoadTimeout sets how long Get and Refresh wait for the page
func (c *Client) SetPageLoadTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.PageLoadTimeout = d
}

// SetCommandTimeout sets the timeout sent with each execute request
func (c *Client) SetCommandTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.CommandTimeout = d
}

func (c *Client) config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Command string `json:"command"`
}

// do sends one request and decodes a 2xx body into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	req := c.resty.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("Relay response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()),
	)

	raw := resp.Body()
	if resp.IsError() {
		return decodeError(resp.StatusCode(), raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns an error response into *types.PeerExecutionError when
// the peer reported the failure, else *APIError.
func decodeError(status int, raw []byte) error {
	var body errorBody
	if err := sonic.Unmarshal(raw, &body); err != nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	}
	if status == http.StatusInternalServerError && body.Error != "" {
		return types.NewPeerExecutionError(body.Error, "")
	}
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg, Command: body.Command}
}

// IsPeerError reports whether err is a script failure reported by the peer
func IsPeerError(err error) bool {
	var peerErr *types.PeerExecutionError
	return errors.As(err, &peerErr)
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
