package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
	"github.com/GriffinCanCode/extension-relay/internal/shared/utils"
)

// Locator lookup commands used by WaitForElement
const (
	cssLookup   = "get_element"
	xpathLookup = "find_element_by_xpath"
)

// WaitForElement polls for locator until the peer reports it present or
// maxWait elapses. XPath-shaped locators use find_element_by_xpath, anything
// else get_element. It returns ErrNotFound on exhaustion.
func (e *Executor) WaitForElement(ctx context.Context, locator string, maxWait time.Duration) error {
	if maxWait <= 0 {
		maxWait = e.cfg.ElementWaitMax
	}

	lookup, params := cssLookup, map[string]interface{}{"selector": locator}
	if utils.LooksLikeXPath(locator) {
		lookup, params = xpathLookup, map[string]interface{}{"xpath": locator}
	}
	if err := e.catalog.Validate(lookup, params); err != nil {
		return err
	}

	deadline := e.clock.Now().Add(maxWait)
	for {
		remaining := deadline.Sub(e.clock.Now())
		if remaining <= 0 {
			break
		}

		// The lookup timeout is clamped up to MinTimeout; the context keeps
		// it inside the wait.
		lookupCtx, cancel := context.WithTimeout(ctx, remaining)
		found, err := e.execute(lookupCtx, lookup, params, remaining, false)
		cancel()
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return fmt.Errorf("element %q not present after %s: %w", locator, maxWait, types.ErrNotFound)
		case err == nil && truthy(found):
			return nil
		case err != nil && !transientLookupError(err):
			return err
		}

		if e.clock.Now().Add(e.cfg.ElementPollInterval).After(deadline) {
			break
		}
		select {
		case <-e.clock.After(e.cfg.ElementPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("element %q not present after %s: %w", locator, maxWait, types.ErrNotFound)
}

// ActOnElement waits for the element named by params["selector"] (or
// params["xpath"]) and then executes the command.
func (e *Executor) ActOnElement(ctx context.Context, name string, params map[string]interface{}, timeout, maxWait time.Duration) (interface{}, error) {
	if err := e.catalog.Validate(name, params); err != nil {
		return nil, err
	}
	locator, _ := params["selector"].(string)
	if locator == "" {
		locator, _ = params["xpath"].(string)
	}
	if locator != "" {
		if err := e.WaitForElement(ctx, locator, maxWait); err != nil {
			return nil, err
		}
	}
	return e.Execute(ctx, name, params, timeout)
}

// transientLookupError reports lookup failures that should be polled again
func transientLookupError(err error) bool {
	var peerErr *types.PeerExecutionError
	switch {
	case errors.As(err, &peerErr):
		return true
	case errors.Is(err, types.ErrTimeout):
		return true
	}
	return false
}

// truthy mirrors the peer's notion of "found"
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	}
	return true
}
