package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xpath"
)

// Size limits (in bytes)
const (
	MaxMessageSize = 1 * 1024 * 1024 // 1MB - peer frame ceiling
	MaxRequestSize = 1 * 1024 * 1024 // 1MB - HTTP request body ceiling
)

// String length limits
const (
	MaxCommandNameLength = 64
	MaxSelectorLength    = 2048
	MaxURLLength         = 8192
	MaxDescriptionLength = 2048
	MaxJSONDepth         = 32
)

// Regular expressions for validation
var (
	// CommandNamePattern allows alphanumeric and underscores (get_element, getTitle)
	CommandNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	// xpathLead matches the leading forms the peer treats as XPath
	xpathLead = regexp.MustCompile(`^(\(|\.{0,2}/)`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateCommandName validates a catalog command name
func ValidateCommandName(name string) error {
	if err := ValidateString(name, "command", 1, MaxCommandNameLength, true); err != nil {
		return err
	}
	if !CommandNamePattern.MatchString(name) {
		return fmt.Errorf("command contains invalid characters (only alphanumeric and underscores allowed)")
	}
	return nil
}

// ValidateURL requires an absolute URL with a scheme and host
func ValidateURL(raw string) error {
	if err := ValidateString(raw, "url", 1, MaxURLLength, true); err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("url is malformed: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must include scheme and host")
	}
	return nil
}

// ValidateSelector performs a shallow syntax check of a CSS selector
func ValidateSelector(selector string) error {
	if err := ValidateString(selector, "selector", 1, MaxSelectorLength, true); err != nil {
		return err
	}
	if strings.ContainsAny(selector, "<>{}`") {
		return fmt.Errorf("selector contains invalid characters")
	}
	if strings.Count(selector, "[") != strings.Count(selector, "]") ||
		strings.Count(selector, "(") != strings.Count(selector, ")") {
		return fmt.Errorf("selector has unbalanced brackets")
	}
	return nil
}

// ValidateXPath compiles expr to catch syntax errors before dispatch
func ValidateXPath(expr string) error {
	if err := ValidateString(expr, "xpath", 1, MaxSelectorLength, true); err != nil {
		return err
	}
	if _, err := xpath.Compile(expr); err != nil {
		return fmt.Errorf("xpath is invalid: %w", err)
	}
	return nil
}

// LooksLikeXPath reports whether a locator should be treated as XPath
func LooksLikeXPath(locator string) bool {
	return xpathLead.MatchString(strings.TrimSpace(locator))
}

// ValidateJSONDepth checks if JSON nesting depth is within limits
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}

	return nil
}
