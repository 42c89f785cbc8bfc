// Package catalog holds the read-only list of data sources and widgets a
// user picks from when starting a new chat.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/devdeck/internal/sessions/domain"
)

//go:embed catalog.yaml
var builtin []byte

var (
	// ErrUnknownWidget is returned when a selection names a widget the
	// catalog does not offer.
	ErrUnknownWidget = errors.New("unknown widget")

	// ErrUnknownSource is returned when no data source has the requested ID.
	ErrUnknownSource = errors.New("unknown data source")
)

// SourceKind describes what Location holds for a source.
type SourceKind string

const (
	KindConnection SourceKind = "connection"
	KindEndpoint   SourceKind = "endpoint"
	KindFile       SourceKind = "file"
)

// Source is a selectable data source.
type Source struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Kind        SourceKind `yaml:"kind" json:"kind"`
	Location    string     `yaml:"location" json:"location"`
}

// DisplayLocation returns Location with any user credentials removed.
// Locations that are not URLs are returned unchanged.
func (s Source) DisplayLocation() string {
	u, err := url.Parse(s.Location)
	if err != nil || u.User == nil {
		return s.Location
	}
	u.User = nil
	return u.String()
}

// Category groups sources in the picker.
type Category struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Expanded bool     `yaml:"expanded" json:"expanded"`
	Sources  []Source `yaml:"sources" json:"sources"`
}

// Widget is a pane a session can enable. Enabled is the default selection;
// Required widgets cannot be deselected.
type Widget struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Required bool   `yaml:"required" json:"required"`
}

// Catalog is the full picker contents. A Catalog is never mutated after
// Parse returns it.
type Catalog struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Widgets    []Widget   `yaml:"widgets" json:"widgets"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates YAML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that IDs are present and unique.
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog has no categories")
	}
	sourceIDs := make(map[string]bool)
	for i, cat := range c.Categories {
		if cat.ID == "" || cat.Name == "" {
			return fmt.Errorf("categories[%d]: id and name are required", i)
		}
		for j, src := range cat.Sources {
			if src.ID == "" || src.Name == "" {
				return fmt.Errorf("categories[%d].sources[%d]: id and name are required", i, j)
			}
			if sourceIDs[src.ID] {
				return fmt.Errorf("categories[%d].sources[%d]: duplicate source id %q", i, j, src.ID)
			}
			sourceIDs[src.ID] = true
		}
	}

	widgetIDs := make(map[string]bool)
	for i, w := range c.Widgets {
		if w.ID == "" {
			return fmt.Errorf("widgets[%d]: id is required", i)
		}
		if widgetIDs[w.ID] {
			return fmt.Errorf("widgets[%d]: duplicate widget id %q", i, w.ID)
		}
		widgetIDs[w.ID] = true
	}
	return nil
}

// FindSource returns the source with the given id and the category holding it.
func (c *Catalog) FindSource(id string) (Source, Category, bool) {
	for _, cat := range c.Categories {
		for _, src := range cat.Sources {
			if src.ID == id {
				return src, cat, true
			}
		}
	}
	return Source{}, Category{}, false
}

// Ref resolves a source id to the reference stored on a session.
func (c *Catalog) Ref(id string) (domain.DataSourceRef, error) {
	src, cat, ok := c.FindSource(id)
	if !ok {
		return domain.DataSourceRef{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return domain.DataSourceRef{ID: src.ID, Name: src.Name, Category: cat.ID}, nil
}

// Widget returns the widget with the given id.
func (c *Catalog) Widget(id string) (Widget, bool) {
	for _, w := range c.Widgets {
		if w.ID == id {
			return w, true
		}
	}
	return Widget{}, false
}

// DefaultWidgets returns the ids of widgets enabled by default, in catalog
// order. Required widgets are always included.
func (c *Catalog) DefaultWidgets() []string {
	var ids []string
	for _, w := range c.Widgets {
		if w.Enabled || w.Required {
			ids = append(ids, w.ID)
		}
	}
	return ids
}

// ResolveWidgets validates a user selection and returns it in catalog order
// with every required widget added. A nil selection means the defaults.
func (c *Catalog) ResolveWidgets(selected []string) ([]string, error) {
	if selected == nil {
		return c.DefaultWidgets(), nil
	}
	for _, id := range selected {
		if _, ok := c.Widget(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownWidget, id)
		}
	}

	var ids []string
	for _, w := range c.Widgets {
		if w.Required || slices.Contains(selected, w.ID) {
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

// Sources returns every source in category order.
func (c *Catalog) Sources() []Source {
	var out []Source
	for _, cat := range c.Categories {
		out = append(out, cat.Sources...)
	}
	return out
}

// Redacted returns a copy of c whose source locations carry no credentials.
func (c *Catalog) Redacted() *Catalog {
	out := &Catalog{Widgets: slices.Clone(c.Widgets)}
	for _, cat := range c.Categories {
		cat.Sources = slices.Clone(cat.Sources)
		for i := range cat.Sources {
			cat.Sources[i].Location = cat.Sources[i].DisplayLocation()
		}
		out.Categories = append(out.Categories, cat)
	}
	return out
}
