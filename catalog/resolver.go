// Package catalog loads entity definitions from JSON or YAML files and
// resolves them into a validated contract registry. Later sources override
// earlier ones to support local overlays during development.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"crmgen/contract"
)

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// MappingDocument is the on-disk form of one compendium mapping.
type MappingDocument struct {
	Field                 string   `json:"field" yaml:"field" jsonschema:"title=Field,description=Entity-facing field name.,minLength=1,required"`
	Column                string   `json:"column" yaml:"column" jsonschema:"title=Column,description=Raw CRM column the field maps to.,minLength=1,required"`
	NavigationProperty    string   `json:"navigationProperty,omitempty" yaml:"navigationProperty,omitempty" jsonschema:"title=Navigation Property,description=CRM navigation property used when writing a Lookup column."`
	LinkedEntities        []string `json:"linkedEntities,omitempty" yaml:"linkedEntities,omitempty" jsonschema:"title=Linked Entities,description=CRM entity types a Lookup column may reference; bare names preferred over legacy /-prefixed names."`
	OwningPrimaryIDColumn string   `json:"owningPrimaryIdColumn,omitempty" yaml:"owningPrimaryIdColumn,omitempty" jsonschema:"title=Owning Primary ID Column,description=Primary id column on the linked entity."`
}

// EntryDocument is the on-disk form of one entity definition. ProtectedFields
// is keyed by lowercase operation name (create, read, update, delete).
type EntryDocument struct {
	EntityType      string              `json:"entityType" yaml:"entityType" jsonschema:"title=Entity Type,description=Raw CRM entity set name.,minLength=1,required"`
	GuidColumn      string              `json:"guidColumn" yaml:"guidColumn" jsonschema:"title=Guid Column,description=CRM column holding the entity's own guid.,minLength=1,required"`
	CreationSource  string              `json:"creationSource,omitempty" yaml:"creationSource,omitempty" jsonschema:"title=Creation Source,description=Numeric CRM option-set value identifying the creating system."`
	RequiredFields  []string            `json:"requiredFields,omitempty" yaml:"requiredFields,omitempty" jsonschema:"title=Required Fields,description=Fields that must never encode empty."`
	ProtectedFields map[string][]string `json:"protectedFields,omitempty" yaml:"protectedFields,omitempty" jsonschema:"title=Protected Fields,description=Fields excluded per operation; keys are create/read/update/delete."`
	Mappings        []MappingDocument   `json:"mappings" yaml:"mappings" jsonschema:"title=Mappings,description=Translation compendium for the entity.,required"`
}

// Definition converts the document into the runtime contract form.
func (e EntryDocument) Definition() (contract.Definition, error) {
	def := contract.Definition{
		EntityType:     strings.TrimSpace(e.EntityType),
		GuidColumn:     strings.TrimSpace(e.GuidColumn),
		CreationSource: strings.TrimSpace(e.CreationSource),
		RequiredFields: append([]string(nil), e.RequiredFields...),
	}
	if len(e.ProtectedFields) > 0 {
		def.ProtectedFields = make(map[contract.CrudOp][]string, len(e.ProtectedFields))
		for name, fields := range e.ProtectedFields {
			op, err := contract.ParseCrudOp(name)
			if err != nil {
				return contract.Definition{}, fmt.Errorf("entity %q: %w", e.EntityType, err)
			}
			def.ProtectedFields[op] = append([]string(nil), fields...)
		}
	}
	def.Mappings = make([]contract.FieldMapping, 0, len(e.Mappings))
	for _, m := range e.Mappings {
		def.Mappings = append(def.Mappings, contract.FieldMapping{
			Field:                 m.Field,
			Column:                m.Column,
			NavigationProperty:    m.NavigationProperty,
			LinkedEntities:        append([]string(nil), m.LinkedEntities...),
			OwningPrimaryIDColumn: m.OwningPrimaryIDColumn,
		})
	}
	return def, nil
}

// Resolver merges one or more catalog sources into a stable lookup table.
// Call Reload to pick up on-disk changes.
type Resolver struct {
	mu      sync.RWMutex
	sources []source
	entries map[string]contract.Definition
}

// DefaultPaths returns the canonical catalog locations relative to the module
// root. Callers may pass these to Load.
func DefaultPaths() []string {
	candidates := []string{
		filepath.Join("config", "entities", "definitions.json"),
		filepath.Join("..", "config", "entities", "definitions.json"),
	}

	paths := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		cleaned := filepath.Clean(candidate)
		if _, duplicate := seen[cleaned]; duplicate {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}
	return paths
}

// Load constructs a Resolver backed by the provided catalog file paths.
func Load(paths ...string) (*Resolver, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return NewResolver(sources...)
}

// NewResolver constructs a Resolver from arbitrary sources. Tests can supply
// in-memory sources while production code uses fileSource.
func NewResolver(sources ...source) (*Resolver, error) {
	r := &Resolver{
		sources: append([]source(nil), sources...),
		entries: make(map[string]contract.Definition),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all catalog sources. Later sources override earlier ones.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	entries := make(map[string]contract.Definition)
	for _, src := range r.sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("catalog: failed loading %s: %w", src.Path(), err)
		}
		documents, err := decodeEntries(src.Path(), data)
		if err != nil {
			return fmt.Errorf("catalog: failed parsing %s: %w", src.Path(), err)
		}
		seen := make(map[string]struct{}, len(documents))
		for _, doc := range documents {
			entityType := strings.TrimSpace(doc.EntityType)
			if entityType == "" {
				return fmt.Errorf("catalog: entry missing entityType in %s", src.Path())
			}
			if _, dup := seen[entityType]; dup {
				return fmt.Errorf("catalog: duplicate entity type %q in %s", entityType, src.Path())
			}
			seen[entityType] = struct{}{}

			def, err := doc.Definition()
			if err != nil {
				return fmt.Errorf("catalog: %s: %w", src.Path(), err)
			}
			if err := def.Validate(); err != nil {
				return fmt.Errorf("catalog: %s: %w", src.Path(), err)
			}
			entries[entityType] = def
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Resolve returns the definition for the given CRM entity type.
func (r *Resolver) Resolve(entityType string) (contract.Definition, bool) {
	if r == nil {
		return contract.Definition{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.entries[entityType]
	return def, ok
}

// Registry returns the loaded definitions as a contract registry, sorted by
// entity type for stable iteration.
func (r *Resolver) Registry() contract.Registry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.entries))
	for entityType := range r.entries {
		types = append(types, entityType)
	}
	sort.Strings(types)
	out := make(contract.Registry, 0, len(types))
	for _, entityType := range types {
		out = append(out, r.entries[entityType])
	}
	return out
}

// Entries returns a snapshot of the loaded definitions keyed by entity type.
func (r *Resolver) Entries() map[string]contract.Definition {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]contract.Definition, len(r.entries))
	for entityType, def := range r.entries {
		out[entityType] = def
	}
	return out
}

func decodeEntries(path string, data []byte) ([]EntryDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAMLEntries(data)
	default:
		return decodeJSONEntries(data)
	}
}

func decodeYAMLEntries(data []byte) ([]EntryDocument, error) {
	var entries []EntryDocument
	if err := yaml.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}
	var object map[string]EntryDocument
	if err := yaml.Unmarshal(data, &object); err != nil {
		return nil, err
	}
	return entriesFromKeyed(object)
}

func decodeJSONEntries(data []byte) ([]EntryDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var entries []EntryDocument
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		var object map[string]EntryDocument
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		return entriesFromKeyed(object)
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}

// entriesFromKeyed normalises the object form, where entries are keyed by
// entity type, into the canonical array form.
func entriesFromKeyed(object map[string]EntryDocument) ([]EntryDocument, error) {
	types := make([]string, 0, len(object))
	for entityType := range object {
		types = append(types, entityType)
	}
	sort.Strings(types)
	entries := make([]EntryDocument, 0, len(types))
	for _, entityType := range types {
		entry := object[entityType]
		if entry.EntityType == "" {
			entry.EntityType = entityType
		} else if entry.EntityType != entityType {
			return nil, fmt.Errorf("entry entityType %q does not match key %q", entry.EntityType, entityType)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
