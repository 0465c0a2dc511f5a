package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
	"github.com/GriffinCanCode/extension-relay/internal/shared/utils"
)

// Category is descriptor metadata; it never alters validation or dispatch.
type Category string

const (
	CategoryDOM        Category = "dom"
	CategoryNavigation Category = "navigation"
	CategoryStorage    Category = "storage"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryDOM, CategoryNavigation, CategoryStorage:
		return true
	}
	return false
}

// ParamType is the type contract for a single parameter
type ParamType string

const (
	TypeString ParamType = "string"
	TypeBool   ParamType = "bool"
	TypeNumber ParamType = "number"
	TypeAny    ParamType = "any"
)

// Param formats add a syntax check on top of TypeString.
const (
	FormatURL      = "url"
	FormatSelector = "selector"
	FormatXPath    = "xpath"
)

// Delimiter separates script tokens. It is not escaped inside values.
const Delimiter = "|"

// Param is one required parameter of a command.
type Param struct {
	Name   string    `json:"name" yaml:"name" toml:"name"`
	Type   ParamType `json:"type" yaml:"type" toml:"type"`
	Enum   []string  `json:"enum,omitempty" yaml:"enum" toml:"enum"`
	Format string    `json:"format,omitempty" yaml:"format" toml:"format"`
}

// EncodeFunc renders a validated parameter set as a script string.
type EncodeFunc func(script string, params map[string]interface{}) string

// Descriptor is a named command. Treat it as immutable once registered.
type Descriptor struct {
	Name        string
	Description string
	Category    Category
	Script      string
	Params      []Param

	// TrailingDelimiter appends a bare delimiter when Params is empty
	// (the peer expects "getCookies|").
	TrailingDelimiter bool

	// Encode overrides the default pipe-joined encoding.
	Encode EncodeFunc
}

// validate checks params against the descriptor's contract. Extra keys are
// ignored.
func (d *Descriptor) validate(params map[string]interface{}) error {
	for _, p := range d.Params {
		v, ok := params[p.Name]
		if !ok || v == nil {
			return types.InvalidParams("%s: missing required parameter %q", d.Name, p.Name)
		}
		if err := p.check(v); err != nil {
			return types.InvalidParams("%s: %v", d.Name, err)
		}
	}
	return nil
}

func (p Param) check(v interface{}) error {
	switch p.Type {
	case TypeString, "":
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("parameter %q must be a string", p.Name)
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return fmt.Errorf("parameter %q must be one of %s", p.Name, strings.Join(p.Enum, ", "))
		}
		return p.checkFormat(s)
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", p.Name)
		}
	case TypeNumber:
		if _, ok := toFloat(v); !ok {
			return fmt.Errorf("parameter %q must be a number", p.Name)
		}
	case TypeAny:
	default:
		return fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
	}
	return nil
}

func (p Param) checkFormat(s string) error {
	var err error
	switch p.Format {
	case "":
		return nil
	case FormatURL:
		err = utils.ValidateURL(s)
	case FormatSelector:
		err = utils.ValidateSelector(s)
	case FormatXPath:
		err = utils.ValidateXPath(s)
	default:
		return fmt.Errorf("parameter %q has unknown format %q", p.Name, p.Format)
	}
	if err != nil {
		return fmt.Errorf("parameter %q: %w", p.Name, err)
	}
	return nil
}

// encode renders the script string. Values are joined in Params order.
func (d *Descriptor) encode(params map[string]interface{}) string {
	if d.Encode != nil {
		return d.Encode(d.Script, params)
	}
	if len(d.Params) == 0 {
		if d.TrailingDelimiter {
			return d.Script + Delimiter
		}
		return d.Script
	}

	tokens := make([]string, 0, len(d.Params)+1)
	tokens = append(tokens, d.Script)
	for _, p := range d.Params {
		tokens = append(tokens, FormatValue(params[p.Name]))
	}
	return strings.Join(tokens, Delimiter)
}

// Info returns the listing view of d.
func (d *Descriptor) Info() types.CommandInfo {
	info := types.CommandInfo{
		Name:        d.Name,
		Description: d.Description,
		Type:        string(d.Category),
		Script:      d.Script,
	}
	if len(d.Params) > 0 {
		info.Params = make(map[string]string, len(d.Params))
		for _, p := range d.Params {
			info.Params[p.Name] = string(p.Type)
		}
	}
	return info
}

// FormatValue renders one parameter value as a script token. Booleans are
// lower-case, numbers use the shortest representation.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
