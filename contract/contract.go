package contract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errEmptyEntityType   = errors.New("entity type must not be empty")
	errEmptyGuidColumn   = errors.New("guid column must not be empty")
	errEmptyField        = errors.New("mapping field name must not be empty")
	errEmptyColumn       = errors.New("mapping column must not be empty")
	errOrphanNavigation  = errors.New("mapping declares a navigation property without linked entities")
	errUnknownCrudOp     = errors.New("unknown crud operation")
	errUnmappedRequired  = errors.New("required field is not mapped")
	errUnmappedProtected = errors.New("protected field is not mapped")
)

// CrudOp identifies which adapter operation a policy applies to.
type CrudOp int

const (
	CrudCreate CrudOp = iota
	CrudRead
	CrudUpdate
	CrudDelete
)

// String returns the lowercase operation name used in catalog files and logs.
func (op CrudOp) String() string {
	switch op {
	case CrudCreate:
		return "create"
	case CrudRead:
		return "read"
	case CrudUpdate:
		return "update"
	case CrudDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ParseCrudOp converts a lowercase operation name back into a CrudOp.
func ParseCrudOp(name string) (CrudOp, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "create":
		return CrudCreate, nil
	case "read":
		return CrudRead, nil
	case "update":
		return CrudUpdate, nil
	case "delete":
		return CrudDelete, nil
	default:
		return 0, fmt.Errorf("%w %q", errUnknownCrudOp, name)
	}
}

// FieldMapping translates one entity field into the raw CRM column space.
//
// Field is the entity-facing name (e.g. "first_name") and Column the CRM
// column it maps to (e.g. "new_firstname"). Lookup columns additionally carry
// a NavigationProperty, used as the key when writing the field, and the CRM
// entity types the lookup may reference. A leading "/" on a linked entity
// name is tolerated for backwards compatibility but the bare name is
// preferred. OwningPrimaryIDColumn names the primary id column on the linked
// entity when known.
type FieldMapping struct {
	Field                 string
	Column                string
	NavigationProperty    string
	LinkedEntities        []string
	OwningPrimaryIDColumn string
}

func (m FieldMapping) validate() error {
	if strings.TrimSpace(m.Field) == "" {
		return errEmptyField
	}
	if strings.TrimSpace(m.Column) == "" {
		return fmt.Errorf("field %q: %w", m.Field, errEmptyColumn)
	}
	if m.NavigationProperty != "" && len(m.LinkedEntities) == 0 {
		return fmt.Errorf("field %q: %w", m.Field, errOrphanNavigation)
	}
	return nil
}

// Definition describes how one CRM entity type is generated: its identity
// columns, creation source, CRUD policy, and the full field compendium.
type Definition struct {
	// EntityType is the raw CRM entity set name, e.g. "new_accesslogs".
	EntityType string
	// GuidColumn names the CRM column holding the entity's own guid.
	GuidColumn string
	// CreationSource is the numeric CRM option-set value identifying the
	// system that created the record.
	CreationSource string
	// RequiredFields lists entity field names that must never encode empty.
	RequiredFields []string
	// ProtectedFields lists entity field names excluded per operation.
	ProtectedFields map[CrudOp][]string
	// Mappings is the translation compendium for the entity.
	Mappings []FieldMapping
}

// Validate checks the definition in isolation: identity columns present,
// mappings well formed and unique, policy lists referencing mapped fields.
func (d Definition) Validate() error { return d.validate() }

func (d Definition) validate() error {
	if strings.TrimSpace(d.EntityType) == "" {
		return errEmptyEntityType
	}
	if strings.TrimSpace(d.GuidColumn) == "" {
		return fmt.Errorf("entity %q: %w", d.EntityType, errEmptyGuidColumn)
	}
	seen := make(map[string]struct{}, len(d.Mappings))
	for _, m := range d.Mappings {
		if err := m.validate(); err != nil {
			return fmt.Errorf("entity %q: %w", d.EntityType, err)
		}
		if _, dup := seen[m.Field]; dup {
			return fmt.Errorf("entity %q: duplicate field %q", d.EntityType, m.Field)
		}
		seen[m.Field] = struct{}{}
	}
	for _, field := range d.RequiredFields {
		if _, ok := seen[field]; !ok {
			return fmt.Errorf("entity %q: field %q: %w", d.EntityType, field, errUnmappedRequired)
		}
	}
	for op, fields := range d.ProtectedFields {
		if op < CrudCreate || op > CrudDelete {
			return fmt.Errorf("entity %q: %w (%d)", d.EntityType, errUnknownCrudOp, op)
		}
		for _, field := range fields {
			if _, ok := seen[field]; !ok {
				return fmt.Errorf("entity %q: field %q: %w", d.EntityType, field, errUnmappedProtected)
			}
		}
	}
	return nil
}

// Mapping returns the compendium entry for the given entity field.
func (d Definition) Mapping(field string) (FieldMapping, bool) {
	for _, m := range d.Mappings {
		if m.Field == field {
			return m, true
		}
	}
	return FieldMapping{}, false
}

// Columns returns the field-to-column translation table.
func (d Definition) Columns() map[string]string {
	out := make(map[string]string, len(d.Mappings))
	for _, m := range d.Mappings {
		out[m.Field] = m.Column
	}
	return out
}

// NavigationProperties returns the translation table restricted to lookup
// fields that declare a navigation property.
func (d Definition) NavigationProperties() map[string]string {
	out := make(map[string]string)
	for _, m := range d.Mappings {
		if m.NavigationProperty != "" {
			out[m.Field] = m.NavigationProperty
		}
	}
	return out
}

// LinkedEntities returns the lookup fields and the CRM entity types they may
// reference.
func (d Definition) LinkedEntities() map[string][]string {
	out := make(map[string][]string)
	for _, m := range d.Mappings {
		if len(m.LinkedEntities) > 0 {
			out[m.Field] = append([]string(nil), m.LinkedEntities...)
		}
	}
	return out
}

// FieldSet returns every mapped field name, including fields with no
// navigation metadata. Used to validate search return-field requests.
func (d Definition) FieldSet() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Mappings))
	for _, m := range d.Mappings {
		out[m.Field] = struct{}{}
	}
	return out
}

// IsRequired reports whether the field must carry a value on writes.
func (d Definition) IsRequired(field string) bool {
	for _, f := range d.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

// IsProtected reports whether the field is excluded from the given operation.
func (d Definition) IsProtected(field string, op CrudOp) bool {
	for _, f := range d.ProtectedFields[op] {
		if f == field {
			return true
		}
	}
	return false
}

// Registry is a collection of entity definitions. Callers should Validate
// before use.
type Registry []Definition

// Validate ensures the registry contains unique entity types and structurally
// valid definitions.
func (r Registry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, def := range r {
		if err := def.validate(); err != nil {
			return fmt.Errorf("contract: %w", err)
		}
		if _, exists := seen[def.EntityType]; exists {
			return fmt.Errorf("contract: duplicate entity type %q", def.EntityType)
		}
		seen[def.EntityType] = struct{}{}
	}
	return nil
}

// Index materialises a lookup map from the registry after validation.
func (r Registry) Index() (map[string]Definition, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string]Definition, len(r))
	for _, def := range r {
		out[def.EntityType] = def
	}
	return out, nil
}

// MustIndex materialises the registry and panics if validation fails. Useful
// for tests and package-level registries.
func (r Registry) MustIndex() map[string]Definition {
	index, err := r.Index()
	if err != nil {
		panic(err)
	}
	return index
}
