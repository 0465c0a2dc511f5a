package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
)

func TestBuildEncodings(t *testing.T) {
	catalog := NewDefaultCatalog()

	tests := []struct {
		name   string
		params map[string]interface{}
		want   string
	}{
		{"getTitle", nil, "getTitle"},
		{"back", nil, "goBack"},
		{"forward", nil, "goForward"},
		{"get_all_storage", nil, "getAllStorage"},
		{"get_cookies", nil, "getCookies|"},
		{"navigate", map[string]interface{}{"url": "http://x"}, "navigate|http://x"},
		{"get_element", map[string]interface{}{"selector": "#go"}, "findElement|#go"},
		{"click_element", map[string]interface{}{"selector": "#go"}, "clickElement|#go"},
		{"find_elements_by_xpath", map[string]interface{}{"xpath": "//li"}, "findElementsByXPath|//li"},
		{"send_keys", map[string]interface{}{"selector": "#q", "value": "hello"}, "sendKeys|#q|hello"},
		{"get_element_attribute", map[string]interface{}{"selector": "a", "attribute": "href"}, "getElementAttribute|a|href"},
		{"get_element_css_value", map[string]interface{}{"selector": "a", "property_name": "color"}, "getElementCssValue|a|color"},
		{"clear_storage", map[string]interface{}{"storage_type": "all"}, "clearStorage|all"},
		{"toggleNetworkMonitor", map[string]interface{}{"value": true}, "toggleNetworkMonitor|true"},
		{"toggleNetworkMonitor", map[string]interface{}{"value": false}, "toggleNetworkMonitor|false"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.want, func(t *testing.T) {
			payload, err := catalog.Build(tt.name, tt.params)
			require.NoError(t, err)
			assert.Equal(t, types.PayloadExecuteScript, payload.Type)
			assert.Equal(t, tt.want, payload.Script)
		})
	}
}

func TestBuildDeterministic(t *testing.T) {
	catalog := NewDefaultCatalog()
	params := map[string]interface{}{"selector": "#q", "value": "v", "extra": 1}

	first, err := catalog.Build("send_keys", params)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := catalog.Build("send_keys", params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildInvalidParameters(t *testing.T) {
	catalog := NewDefaultCatalog()

	tests := []struct {
		name    string
		command string
		params  map[string]interface{}
	}{
		{"missing selector", "click_element", map[string]interface{}{}},
		{"nil selector", "click_element", map[string]interface{}{"selector": nil}},
		{"mistyped selector", "click_element", map[string]interface{}{"selector": 5}},
		{"mistyped bool", "toggleNetworkMonitor", map[string]interface{}{"value": "true"}},
		{"enum violation", "clear_storage", map[string]interface{}{"storage_type": "indexedDB"}},
		{"missing enum", "clear_storage", nil},
		{"relative url", "navigate", map[string]interface{}{"url": "/home"}},
		{"broken xpath", "find_element_by_xpath", map[string]interface{}{"xpath": "//div["}},
		{"partial params", "send_keys", map[string]interface{}{"selector": "#q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Build(tt.command, tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidParameters), err.Error())
		})
	}
}

func TestGetNotFound(t *testing.T) {
	catalog := NewDefaultCatalog()

	_, err := catalog.Get("teleport")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = catalog.Build("teleport", nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDelimiterNotEscaped(t *testing.T) {
	catalog := NewDefaultCatalog()

	payload, err := catalog.Build("send_keys", map[string]interface{}{"selector": "#q", "value": "a|b"})
	require.NoError(t, err)
	assert.Equal(t, "sendKeys|#q|a|b", payload.Script)
}

func TestRegisterOverwrites(t *testing.T) {
	catalog := NewDefaultCatalog()
	count := catalog.Count()

	err := catalog.Register(Descriptor{Name: "getTitle", Category: CategoryDOM, Script: "documentTitle"})
	require.NoError(t, err)

	payload, err := catalog.Build("getTitle", nil)
	require.NoError(t, err)
	assert.Equal(t, "documentTitle", payload.Script)
	assert.Equal(t, count, catalog.Count())
}

func TestRegisterRejectsMalformed(t *testing.T) {
	catalog := NewCatalog()

	tests := []struct {
		name string
		desc Descriptor
	}{
		{"empty name", Descriptor{Category: CategoryDOM, Script: "x"}},
		{"bad category", Descriptor{Name: "x", Category: "network", Script: "x"}},
		{"no script", Descriptor{Name: "x", Category: CategoryDOM}},
		{"dup param", Descriptor{Name: "x", Category: CategoryDOM, Script: "x", Params: []Param{{Name: "a"}, {Name: "a"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, catalog.Register(tt.desc), types.ErrInvalidParameters)
		})
	}
	assert.Zero(t, catalog.Count())
}

func TestListByCategory(t *testing.T) {
	catalog := NewDefaultCatalog()

	nav := catalog.List(CategoryNavigation)
	names := make([]string, 0, len(nav))
	for _, d := range nav {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"back", "forward", "navigate", "refresh"}, names)

	storage := catalog.List(CategoryStorage)
	assert.Len(t, storage, 3)

	all := catalog.List("")
	assert.Len(t, all, len(Builtins()))
	counts := catalog.Categories()
	assert.Equal(t, len(all), counts[CategoryDOM]+counts[CategoryNavigation]+counts[CategoryStorage])
}

func TestReloadDropsMissing(t *testing.T) {
	catalog := NewDefaultCatalog()
	require.NoError(t, catalog.Register(Descriptor{Name: "scroll_to", Category: CategoryDOM, Script: "scrollTo"}))

	require.NoError(t, catalog.Reload(Builtins()))

	_, err := catalog.Get("scroll_to")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, len(Builtins()), catalog.Count())
}

func TestReloadIsAtomic(t *testing.T) {
	catalog := NewDefaultCatalog()
	set := append(Builtins(), Descriptor{Name: "bad", Category: "nope", Script: "x"})

	assert.Error(t, catalog.Reload(set))
	assert.Equal(t, len(Builtins()), catalog.Count())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3", FormatValue(3))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, "7", FormatValue(json.Number("7")))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "", FormatValue(nil))
}

func TestInfo(t *testing.T) {
	catalog := NewDefaultCatalog()
	d, err := catalog.Get("send_keys")
	require.NoError(t, err)

	info := d.Info()
	assert.Equal(t, "send_keys", info.Name)
	assert.Equal(t, "dom", info.Type)
	assert.Equal(t, map[string]string{"selector": "string", "value": "string"}, info.Params)
}

func TestFingerprint(t *testing.T) {
	a, b := NewDefaultCatalog(), NewDefaultCatalog()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 12)

	before := a.Fingerprint()
	require.NoError(t, a.Register(Descriptor{Name: "scroll", Category: CategoryDOM, Script: "scrollTo"}))
	assert.NotEqual(t, before, a.Fingerprint())

	a.Unregister("scroll")
	assert.Equal(t, before, a.Fingerprint())

	// same name, different script
	require.NoError(t, b.Register(Descriptor{Name: "getTitle", Category: CategoryDOM, Script: "title"}))
	assert.NotEqual(t, before, b.Fingerprint())
}
