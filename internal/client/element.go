package client

import "context"

// Element is a DOM element addressed by an XPath locator
type Element struct {
	client  *Client
	locator string
}

// Locator returns the XPath used to address the element
func (e *Element) Locator() string {
	return e.locator
}

func (e *Element) run(ctx context.Context, command string, extra map[string]interface{}) (interface{}, error) {
	params := map[string]interface{}{"selector": e.locator}
	for k, v := range extra {
		params[k] = v
	}
	return e.client.Execute(ctx, command, params)
}

// Click clicks the element
func (e *Element) Click(ctx context.Context) error {
	_, err := e.run(ctx, "click_element", nil)
	return err
}

// SendKeys types value into the element
func (e *Element) SendKeys(ctx context.Context, value string) error {
	_, err := e.run(ctx, "send_keys", map[string]interface{}{"value": value})
	return err
}

// Clear clears the element's value
func (e *Element) Clear(ctx context.Context) error {
	_, err := e.run(ctx, "clear_element", nil)
	return err
}

// Submit submits the form containing the element
func (e *Element) Submit(ctx context.Context) error {
	_, err := e.run(ctx, "submit_form", nil)
	return err
}

// Text returns the element's text content
func (e *Element) Text(ctx context.Context) (string, error) {
	v, err := e.run(ctx, "get_element_text", nil)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// Attribute returns the named attribute, or "" when absent
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.run(ctx, "get_element_attribute", map[string]interface{}{"attribute": name})
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// CSSValue returns the computed value of a CSS property
func (e *Element) CSSValue(ctx context.Context, property string) (string, error) {
	v, err := e.run(ctx, "get_element_css_value", map[string]interface{}{"property_name": property})
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// IsDisplayed reports whether the element is visible
func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	return e.check(ctx, "is_element_displayed")
}

// IsEnabled reports whether the element is enabled
func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	return e.check(ctx, "is_element_enabled")
}

// IsSelected reports whether a checkbox or radio element is selected
func (e *Element) IsSelected(ctx context.Context) (bool, error) {
	return e.check(ctx, "is_element_selected")
}

func (e *Element) check(ctx context.Context, command string) (bool, error) {
	v, err := e.run(ctx, command, nil)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}
