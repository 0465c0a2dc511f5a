// Package client is a Go client for the relay HTTP API.
//
// Besides raw command execution it offers browser-style helpers: page
// navigation that waits for the page to answer, element lookup by XPath, id,
// name or class with an implicit wait, and element operations addressed by
// the lookup locator.
//
// Transport errors and gateway failures are retried through
// go-retryablehttp. Relay error statuses surface as *APIError, which
// unwraps to the shared/types sentinels; script failures reported by the
// peer surface as *types.PeerExecutionError.
//
// Example Usage:
//
//	c := client.New(client.DefaultConfig(), logger)
//	c.SetImplicitWait(5 * time.Second)
//	if err := c.Get(ctx, "https://example.com"); err != nil {
//	    return err
//	}
//	el, err := c.FindElementByID(ctx, "search")
//	if err != nil {
//	    return err
//	}
//	_ = el.SendKeys(ctx, "golang")
package client
