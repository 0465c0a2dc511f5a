// Package command implements the command catalog.
//
// A Descriptor is a flat value: a name, a category tag, the peer-side
// script name, and the required-parameter contract. Build turns a validated
// parameter set into an EXECUTE_SCRIPT payload whose script is the
// pipe-delimited form "script|arg1|arg2".
//
// Delimiters inside parameter values are not escaped. A value containing
// "|" shifts the peer's token split; existing callers rely on the raw form.
//
// Example Usage:
//
//	catalog := command.NewDefaultCatalog()
//	payload, err := catalog.Build("send_keys", map[string]interface{}{
//	    "selector": "#q",
//	    "value":    "hello",
//	})
//	// payload.Script == "sendKeys|#q|hello"
package command
