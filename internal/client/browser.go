package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

// ExecuteResponse is the success body of /api/commands/execute
type ExecuteResponse struct {
	Status    string                 `json:"status"`
	Command   string                 `json:"command"`
	Params    map[string]interface{} `json:"params"`
	Result    interface{}            `json:"result"`
	Timestamp string                 `json:"timestamp"`
}

// Do sends an execute request as-is
func (c *Client) Do(ctx context.Context, req types.ExecuteRequest) (*ExecuteResponse, error) {
	if req.Command == "" {
		return nil, types.InvalidParams("command name cannot be empty")
	}
	if req.Params == nil {
		req.Params = map[string]interface{}{}
	}
	var out ExecuteResponse
	if err := c.do(ctx, http.MethodPost, "/api/commands/execute", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Execute runs a command with the configured command timeout and returns its
// result
func (c *Client) Execute(ctx context.Context, command string, params map[string]interface{}) (interface{}, error) {
	seconds := int(c.config().CommandTimeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.logger.Debug("Executing command", zap.String("command", command), zap.Any("params", params))
	resp, err := c.Do(ctx, types.ExecuteRequest{Command: command, Params: params, Timeout: &seconds})
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Get navigates to rawURL and waits until the page answers
func (c *Client) Get(ctx context.Context, rawURL string) error {
	if _, err := c.Execute(ctx, "navigate", map[string]interface{}{"url": rawURL}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", rawURL, err)
	}
	if err := c.waitForPage(ctx); err != nil {
		return fmt.Errorf("%w: %s", err, rawURL)
	}
	return nil
}

// Refresh reloads the page and waits until it answers
func (c *Client) Refresh(ctx context.Context) error {
	if _, err := c.Execute(ctx, "refresh", nil); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return c.waitForPage(ctx)
}

// Back navigates back in history
func (c *Client) Back(ctx context.Context) error {
	_, err := c.Execute(ctx, "back", nil)
	return err
}

// Forward navigates forward in history
func (c *Client) Forward(ctx context.Context) error {
	_, err := c.Execute(ctx, "forward", nil)
	return err
}

// Title returns the page title
func (c *Client) Title(ctx context.Context) (string, error) {
	v, err := c.Execute(ctx, "getTitle", nil)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// CurrentURL returns the page URL
func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	v, err := c.Execute(ctx, "getUrl", nil)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// Metadata returns the page metadata
func (c *Client) Metadata(ctx context.Context) (map[string]interface{}, error) {
	v, err := c.Execute(ctx, "getMetadata", nil)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]interface{})
	return m, nil
}

// waitForPage polls getTitle until it succeeds or the page load timeout
// elapses. A page that answers is treated as loaded.
func (c *Client) waitForPage(ctx context.Context) error {
	cfg := c.config()
	ok, err := c.poll(ctx, cfg.PageLoadTimeout, func() (bool, error) {
		_, err := c.Execute(ctx, "getTitle", nil)
		return err == nil, nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrPageLoadTimeout
	}
	return nil
}

// poll calls check until it reports true, returns an error, or wait elapses.
// check always runs at least once.
func (c *Client) poll(ctx context.Context, wait time.Duration, check func() (bool, error)) (bool, error) {
	interval := c.config().PollInterval
	deadline := c.clock.Now().Add(wait)
	for {
		ok, err := check()
		if err != nil || ok {
			return ok, err
		}
		if !c.clock.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-c.clock.After(interval):
		}
	}
}

// FindElementByXPath waits up to the implicit wait for xpath to match
func (c *Client) FindElementByXPath(ctx context.Context, xpath string) (*Element, error) {
	found, err := c.poll(ctx, c.config().ImplicitWait, func() (bool, error) {
		v, err := c.Execute(ctx, "find_element_by_xpath", map[string]interface{}{"xpath": xpath})
		if err != nil {
			if IsPeerError(err) || isTimeout(err) {
				return false, nil
			}
			return false, err
		}
		return truthy(v), nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, xpath)
	}
	return &Element{client: c, locator: xpath}, nil
}

// FindElementsByXPath returns one element per match, addressed by position
func (c *Client) FindElementsByXPath(ctx context.Context, xpath string) ([]*Element, error) {
	v, err := c.Execute(ctx, "find_elements_by_xpath", map[string]interface{}{"xpath": xpath})
	if err != nil {
		return nil, err
	}
	n := count(v)
	elements := make([]*Element, 0, n)
	for i := 1; i <= n; i++ {
		elements = append(elements, &Element{client: c, locator: fmt.Sprintf("(%s)[%d]", xpath, i)})
	}
	return elements, nil
}

// FindElementByID finds the element with the given id attribute
func (c *Client) FindElementByID(ctx context.Context, id string) (*Element, error) {
	return c.FindElementByXPath(ctx, fmt.Sprintf(`//*[@id="%s"]`, id))
}

// FindElementByName finds the element with the given name attribute
func (c *Client) FindElementByName(ctx context.Context, name string) (*Element, error) {
	return c.FindElementByXPath(ctx, fmt.Sprintf(`//*[@name="%s"]`, name))
}

// FindElementByClassName finds the first element whose class contains name
func (c *Client) FindElementByClassName(ctx context.Context, name string) (*Element, error) {
	return c.FindElementByXPath(ctx, fmt.Sprintf(`//*[contains(@class, "%s")]`, name))
}

// AllStorage returns localStorage, sessionStorage and cookies
func (c *Client) AllStorage(ctx context.Context) (map[string]interface{}, error) {
	v, err := c.Execute(ctx, "get_all_storage", nil)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]interface{})
	return m, nil
}

// Cookies returns the page cookies
func (c *Client) Cookies(ctx context.Context) (interface{}, error) {
	return c.Execute(ctx, "get_cookies", nil)
}

// ClearStorage clears one of localStorage, sessionStorage, cookies or all
func (c *Client) ClearStorage(ctx context.Context, storageType string) error {
	_, err := c.Execute(ctx, "clear_storage", map[string]interface{}{"storage_type": storageType})
	return err
}

// ToggleNetworkMonitor switches peer network request reporting
func (c *Client) ToggleNetworkMonitor(ctx context.Context, on bool) error {
	_, err := c.Execute(ctx, "toggleNetworkMonitor", map[string]interface{}{"value": on})
	return err
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}

func count(v interface{}) int {
	switch t := v.(type) {
	case []interface{}:
		return len(t)
	case float64:
		return int(t)
	}
	return 0
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
