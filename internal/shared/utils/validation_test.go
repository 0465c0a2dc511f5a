package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCommandName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"snake case", "click_element", false},
		{"camel case", "getTitle", false},
		{"empty", "", true},
		{"leading digit", "1click", true},
		{"pipe", "click|x", true},
		{"too long", strings.Repeat("a", MaxCommandNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommandName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("http://x"))
	assert.NoError(t, ValidateURL("https://example.com/path?q=1"))
	assert.Error(t, ValidateURL(""))
	assert.Error(t, ValidateURL("example.com"))
	assert.Error(t, ValidateURL("/relative"))
}

func TestValidateSelector(t *testing.T) {
	tests := []struct {
		selector string
		wantErr  bool
	}{
		{"#go", false},
		{"div.item > a[href='x']", false},
		{"li:nth-child(2)", false},
		{"", true},
		{"<script>", true},
		{"a[href", true},
		{"li:nth-child(2", true},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			err := ValidateSelector(tt.selector)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateXPath(t *testing.T) {
	assert.NoError(t, ValidateXPath("//div[@id='main']//a"))
	assert.NoError(t, ValidateXPath("(//button)[1]"))
	assert.Error(t, ValidateXPath("//div[@id='main'"))
	assert.Error(t, ValidateXPath(""))
}

func TestLooksLikeXPath(t *testing.T) {
	assert.True(t, LooksLikeXPath("//a"))
	assert.True(t, LooksLikeXPath("./span"))
	assert.True(t, LooksLikeXPath("(//li)[2]"))
	assert.False(t, LooksLikeXPath("#go"))
	assert.False(t, LooksLikeXPath("div > a"))
}

func TestValidateJSONDepth(t *testing.T) {
	nested := map[string]interface{}{"a": map[string]interface{}{"b": []interface{}{1}}}

	assert.NoError(t, ValidateJSONDepth(nested, 3))
	assert.Error(t, ValidateJSONDepth(nested, 1))
}
