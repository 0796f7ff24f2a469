package client

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyenergysolutions/freepbx-go/internal/constants"
	"github.com/hyenergysolutions/freepbx-go/pkg/freepbx"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Entity kinds known to the catalog.
const (
	EntityExtensions    = "extensions"
	EntityRingGroups    = "ring_groups"
	EntityCDRs          = "cdrs"
	EntityCallFlows     = "call_flows"
	EntityCallFlowState = "call_flow_state"
	EntityQueues        = "queues"
)

// Transport selects the channel an entity is fetched through.
type Transport string

// Supported transports.
const (
	TransportGraphQL Transport = "graphql"
	TransportREST    Transport = "rest"
)

// CatalogEntry describes how to fetch one entity kind.
type CatalogEntry struct {
	Transport Transport `yaml:"transport"`
	Query     string    `yaml:"query,omitempty"`
	Method    string    `yaml:"method,omitempty"`
	Path      string    `yaml:"path,omitempty"`
	Result    string    `yaml:"result,omitempty"`
}

// Validate checks that the entry can be dispatched.
func (e *CatalogEntry) Validate() error {
	switch e.Transport {
	case TransportGraphQL:
		if strings.TrimSpace(e.Query) == "" {
			return constants.ErrMissingQuery
		}
	case TransportREST:
		if e.Path == "" {
			return constants.ErrMissingPath
		}

		_, err := freepbx.ParseVerb(e.Method)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", constants.ErrUnknownTransport, e.Transport)
	}

	return nil
}

// Verb returns the REST verb of the entry.
func (e *CatalogEntry) Verb() freepbx.Verb {
	verb, err := freepbx.ParseVerb(e.Method)
	if err != nil {
		return freepbx.VerbGet
	}

	return verb
}

// RenderQuery substitutes {{name}} placeholders in the GraphQL query.
func (e *CatalogEntry) RenderQuery(params map[string]string) string {
	return render(e.Query, params, false)
}

// RenderPath substitutes {{name}} placeholders in the REST path with
// path-escaped values.
func (e *CatalogEntry) RenderPath(params map[string]string) string {
	return render(e.Path, params, true)
}

func render(template string, params map[string]string, escape bool) string {
	if len(params) == 0 {
		return template
	}

	pairs := make([]string, 0, len(params)*2)

	for name, value := range params {
		if escape {
			value = url.PathEscape(value)
		}

		pairs = append(pairs, "{{"+name+"}}", value)
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// Catalog maps entity kinds to their entries.
type Catalog struct {
	Entities map[string]*CatalogEntry `yaml:"entities"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog

	err := yaml.Unmarshal(data, &catalog)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if catalog.Entities == nil {
		catalog.Entities = make(map[string]*CatalogEntry)
	}

	for _, kind := range catalog.Kinds() {
		entry := catalog.Entities[kind]
		if entry == nil {
			return nil, fmt.Errorf("catalog entry %s: %w", kind, constants.ErrUnknownTransport)
		}

		err := entry.Validate()
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", kind, err)
		}
	}

	return &catalog, nil
}

// LoadCatalog returns the built-in catalog with the entries of the YAML file
// at path laid over it. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	catalog, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}

	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	overrides, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	catalog.Merge(overrides)

	return catalog, nil
}

// Merge replaces the entries of c with those of other, per kind.
func (c *Catalog) Merge(other *Catalog) {
	for kind, entry := range other.Entities {
		c.Entities[kind] = entry
	}
}

// Lookup returns the entry for kind.
func (c *Catalog) Lookup(kind string) (*CatalogEntry, error) {
	entry, ok := c.Entities[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownEntity, kind)
	}

	return entry, nil
}

// Kinds returns the entity kinds in sorted order.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.Entities))
	for kind := range c.Entities {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

// resultNode walks a dotted path through nested JSON objects. A missing key
// or a non-object along the way yields nil.
func resultNode(root interface{}, path string) interface{} {
	if path == "" {
		return root
	}

	node := root

	for _, key := range strings.Split(path, ".") {
		object, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}

		node = object[key]
	}

	return node
}
