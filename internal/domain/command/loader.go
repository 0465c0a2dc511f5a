package command

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

// fileSpec is the on-disk shape of a catalog file:
//
//	commands:
//	  - name: scroll_to
//	    description: Scroll element into view
//	    category: dom
//	    script: scrollIntoView
//	    params:
//	      - {name: selector, type: string, format: selector}
type fileSpec struct {
	Commands []fileCommand `yaml:"commands" toml:"commands"`
}

type fileCommand struct {
	Name              string  `yaml:"name" toml:"name"`
	Description       string  `yaml:"description" toml:"description"`
	Category          string  `yaml:"category" toml:"category"`
	Script            string  `yaml:"script" toml:"script"`
	Params            []Param `yaml:"params" toml:"params"`
	TrailingDelimiter bool    `yaml:"trailing_delimiter" toml:"trailing_delimiter"`
}

// Loader reads additional script descriptors from YAML or TOML files
// matched by a doublestar glob.
type Loader struct {
	pattern   string
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewLoader creates a loader for pattern. An empty pattern loads nothing.
func NewLoader(pattern string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		pattern:   pattern,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Load returns the descriptors from every matched file, in path order.
func (l *Loader) Load() ([]Descriptor, error) {
	if l.pattern == "" {
		return nil, nil
	}

	matches, err := doublestar.FilepathGlob(l.pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog pattern %q: %w", l.pattern, err)
	}
	sort.Strings(matches)

	var out []Descriptor
	for _, path := range matches {
		descs, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded catalog file", zap.String("path", path), zap.Int("commands", len(descs)))
		out = append(out, descs...)
	}
	return out, nil
}

// LoadFile parses one catalog file, choosing the codec by extension.
func (l *Loader) LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var spec fileSpec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &spec)
	case ".toml":
		err = toml.Unmarshal(data, &spec)
	default:
		return nil, fmt.Errorf("unsupported catalog file type: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	descs := make([]Descriptor, 0, len(spec.Commands))
	for _, fc := range spec.Commands {
		d := Descriptor{
			Name:              fc.Name,
			Description:       l.sanitizer.Sanitize(fc.Description),
			Category:          Category(fc.Category),
			Script:            fc.Script,
			Params:            fc.Params,
			TrailingDelimiter: fc.TrailingDelimiter,
		}
		if d.Category == "" {
			d.Category = CategoryDOM
		}
		for i := range d.Params {
			if d.Params[i].Type == "" {
				d.Params[i].Type = TypeString
			}
		}
		if err := checkDescriptor(&d); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Reload rebuilds c from the built-ins plus every loaded file. File
// descriptors override built-ins of the same name.
func (l *Loader) Reload(c *Catalog) (int, error) {
	loaded, err := l.Load()
	if err != nil {
		return 0, err
	}
	set := append(Builtins(), loaded...)
	if err := c.Reload(set); err != nil {
		return 0, err
	}
	return c.Count(), nil
}
