package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/extension-relay/internal/shared/types"
	"github.com/GriffinCanCode/extension-relay/internal/shared/utils"
)

// Catalog is the registry of named command descriptors
type Catalog struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{descriptors: make(map[string]*Descriptor)}
}

// NewDefaultCatalog creates a catalog holding the built-in commands
func NewDefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, d := range Builtins() {
		// built-ins are well-formed
		_ = c.Register(d)
	}
	return c
}

// Register adds or replaces a descriptor by name
func (c *Catalog) Register(d Descriptor) error {
	if err := checkDescriptor(&d); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors[d.Name] = &d
	return nil
}

// Unregister removes a descriptor
func (c *Catalog) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.descriptors, name)
}

// Get retrieves a descriptor by name
func (c *Catalog) Get(name string) (Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.descriptors[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("command %q: %w", name, types.ErrNotFound)
	}
	return *d, nil
}

// Validate checks params against the named command's contract
func (c *Catalog) Validate(name string, params map[string]interface{}) error {
	d, err := c.Get(name)
	if err != nil {
		return err
	}
	return d.validate(params)
}

// Build validates params and returns the wire payload for the named command
func (c *Catalog) Build(name string, params map[string]interface{}) (types.Payload, error) {
	d, err := c.Get(name)
	if err != nil {
		return types.Payload{}, err
	}
	if err := d.validate(params); err != nil {
		return types.Payload{}, err
	}
	return types.Payload{Type: types.PayloadExecuteScript, Script: d.encode(params)}, nil
}

// List returns descriptors sorted by name, optionally filtered by category
func (c *Catalog) List(category Category) []Descriptor {
	c.mu.RLock()
	out := make([]Descriptor, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		if category == "" || d.Category == category {
			out = append(out, *d)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Categories returns descriptor counts per category
func (c *Catalog) Categories() map[Category]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[Category]int)
	for _, d := range c.descriptors {
		counts[d.Category]++
	}
	return counts
}

// Count returns the number of registered descriptors
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descriptors)
}

// Reload registers every descriptor in set, overwriting by name, and drops
// names absent from set. The set is checked in full before any change.
func (c *Catalog) Reload(set []Descriptor) error {
	next := make(map[string]*Descriptor, len(set))
	for i := range set {
		d := set[i]
		if err := checkDescriptor(&d); err != nil {
			return err
		}
		next[d.Name] = &d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.descriptors {
		if _, ok := next[name]; !ok {
			delete(c.descriptors, name)
		}
	}
	for name, d := range next {
		c.descriptors[name] = d
	}
	return nil
}

func checkDescriptor(d *Descriptor) error {
	if err := utils.ValidateCommandName(d.Name); err != nil {
		return types.InvalidParams("descriptor: %v", err)
	}
	if !d.Category.Valid() {
		return types.InvalidParams("descriptor %s: unknown category %q", d.Name, d.Category)
	}
	if d.Script == "" {
		return types.InvalidParams("descriptor %s: script is required", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			return types.InvalidParams("descriptor %s: parameter name is required", d.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return types.InvalidParams("descriptor %s: duplicate parameter %q", d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Fingerprint identifies the catalog contents. It changes whenever a
// descriptor is added, removed, or altered in name, category, script or
// parameters.
func (c *Catalog) Fingerprint() string {
	c.mu.RLock()
	fields := make([]string, 0, len(c.descriptors))
	for _, d := range c.descriptors {
		var b strings.Builder
		fmt.Fprintf(&b, "%s\x1f%s\x1f%s\x1f%t", d.Name, d.Category, d.Script, d.TrailingDelimiter)
		for _, p := range d.Params {
			fmt.Fprintf(&b, "\x1f%s:%s:%s:%s", p.Name, p.Type, p.Format, strings.Join(p.Enum, ","))
		}
		fields = append(fields, b.String())
	}
	c.mu.RUnlock()

	return utils.Short(utils.DefaultHasher().HashFields(fields...))
}
