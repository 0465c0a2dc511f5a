package command

var selector = Param{Name: "selector", Type: TypeString, Format: FormatSelector}

var xpathParam = Param{Name: "xpath", Type: TypeString, Format: FormatXPath}

// StorageTypes are the accepted clear_storage targets
var StorageTypes = []string{"localStorage", "sessionStorage", "cookies", "all"}

// Builtins returns the built-in command set understood by the extension's
// content script.
func Builtins() []Descriptor {
	return []Descriptor{
		// page
		{Name: "getTitle", Description: "Get page title", Category: CategoryDOM, Script: "getTitle"},
		{Name: "getUrl", Description: "Get current URL", Category: CategoryDOM, Script: "getUrl"},
		{Name: "getMetadata", Description: "Get page metadata", Category: CategoryDOM, Script: "getMetadata"},

		// navigation
		{
			Name: "navigate", Description: "Navigate to URL", Category: CategoryNavigation, Script: "navigate",
			Params: []Param{{Name: "url", Type: TypeString, Format: FormatURL}},
		},
		{Name: "back", Description: "Navigate back in history", Category: CategoryNavigation, Script: "goBack"},
		{Name: "forward", Description: "Navigate forward in history", Category: CategoryNavigation, Script: "goForward"},
		{Name: "refresh", Description: "Refresh the current page", Category: CategoryNavigation, Script: "refresh"},

		// element lookup
		{Name: "get_element", Description: "Get element by selector", Category: CategoryDOM, Script: "findElement", Params: []Param{selector}},
		{Name: "find_element_by_xpath", Description: "Find element by XPath", Category: CategoryDOM, Script: "find_element_by_xpath", Params: []Param{xpathParam}},
		{Name: "find_elements_by_xpath", Description: "Find all elements matching XPath", Category: CategoryDOM, Script: "findElementsByXPath", Params: []Param{xpathParam}},

		// element interaction
		{Name: "click_element", Description: "Click element", Category: CategoryDOM, Script: "clickElement", Params: []Param{selector}},
		{
			Name: "send_keys", Description: "Type text into element", Category: CategoryDOM, Script: "sendKeys",
			Params: []Param{selector, {Name: "value", Type: TypeString}},
		},
		{Name: "clear_element", Description: "Clear element value", Category: CategoryDOM, Script: "clearElement", Params: []Param{selector}},
		{Name: "submit_form", Description: "Submit form", Category: CategoryDOM, Script: "submitForm", Params: []Param{selector}},

		// element state
		{Name: "is_element_enabled", Description: "Check if element is enabled", Category: CategoryDOM, Script: "isElementEnabled", Params: []Param{selector}},
		{Name: "is_element_selected", Description: "Check if element is selected", Category: CategoryDOM, Script: "isElementSelected", Params: []Param{selector}},
		{Name: "is_element_displayed", Description: "Check if element is displayed", Category: CategoryDOM, Script: "isElementDisplayed", Params: []Param{selector}},

		// element properties
		{
			Name: "get_element_attribute", Description: "Get element attribute", Category: CategoryDOM, Script: "getElementAttribute",
			Params: []Param{selector, {Name: "attribute", Type: TypeString}},
		},
		{Name: "get_element_text", Description: "Get element text", Category: CategoryDOM, Script: "getElementText", Params: []Param{selector}},
		{
			Name: "get_element_css_value", Description: "Get element CSS property value", Category: CategoryDOM, Script: "getElementCssValue",
			Params: []Param{selector, {Name: "property_name", Type: TypeString}},
		},

		// storage
		{Name: "get_all_storage", Description: "Retrieve all storage data including cookies, localStorage, and sessionStorage", Category: CategoryStorage, Script: "getAllStorage"},
		{Name: "get_cookies", Description: "Retrieve all cookies from the current page", Category: CategoryStorage, Script: "getCookies", TrailingDelimiter: true},
		{
			Name: "clear_storage", Description: "Clear specified storage type (localStorage, sessionStorage, cookies, or all)", Category: CategoryStorage, Script: "clearStorage",
			Params: []Param{{Name: "storage_type", Type: TypeString, Enum: StorageTypes}},
		},

		{
			Name: "toggleNetworkMonitor", Description: "Toggle network request monitoring", Category: CategoryDOM, Script: "toggleNetworkMonitor",
			Params: []Param{{Name: "value", Type: TypeBool}},
		},
	}
}
