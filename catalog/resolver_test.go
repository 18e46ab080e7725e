package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crmgen/contract"
)

type memorySource struct {
	name string
	data string
}

func (m *memorySource) Load() ([]byte, error) { return []byte(m.data), nil }
func (m *memorySource) Path() string          { return m.name }

const contactsJSON = `[
  {
    "entityType": "contacts",
    "guidColumn": "contactid",
    "creationSource": "100000011",
    "requiredFields": ["first_name"],
    "protectedFields": {"update": ["owner_id"]},
    "mappings": [
      {"field": "id", "column": "contactid"},
      {"field": "first_name", "column": "firstname"},
      {"field": "owner_id", "column": "_ownerid_value", "navigationProperty": "ownerid", "linkedEntities": ["systemusers"], "owningPrimaryIdColumn": "systemuserid"}
    ]
  }
]`

func TestResolverLoadsJSONArray(t *testing.T) {
	r, err := NewResolver(&memorySource{name: "contacts.json", data: contactsJSON})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	def, ok := r.Resolve("contacts")
	if !ok {
		t.Fatalf("expected contacts to resolve")
	}
	if def.GuidColumn != "contactid" || def.CreationSource != "100000011" {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if !def.IsRequired("first_name") {
		t.Fatalf("expected first_name required")
	}
	if !def.IsProtected("owner_id", contract.CrudUpdate) {
		t.Fatalf("expected owner_id protected on update")
	}
	if def.Mappings[2].OwningPrimaryIDColumn != "systemuserid" {
		t.Fatalf("unexpected mapping: %+v", def.Mappings[2])
	}
}

func TestResolverLoadsKeyedJSONObject(t *testing.T) {
	keyed := `{
  "contacts": {
    "guidColumn": "contactid",
    "mappings": [{"field": "id", "column": "contactid"}]
  }
}`
	r, err := NewResolver(&memorySource{name: "contacts.json", data: keyed})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	def, ok := r.Resolve("contacts")
	if !ok || def.EntityType != "contacts" {
		t.Fatalf("expected key to fill entityType, got %+v ok=%v", def, ok)
	}
}

func TestResolverRejectsMismatchedKey(t *testing.T) {
	keyed := `{
  "contacts": {
    "entityType": "accounts",
    "guidColumn": "contactid",
    "mappings": [{"field": "id", "column": "contactid"}]
  }
}`
	if _, err := NewResolver(&memorySource{name: "contacts.json", data: keyed}); err == nil {
		t.Fatalf("expected mismatched key error")
	}
}

func TestResolverLoadsYAML(t *testing.T) {
	doc := `
- entityType: new_accesslogs
  guidColumn: new_accesslogid
  mappings:
    - field: id
      column: new_accesslogid
    - field: state_work_is_in
      column: _new_stateworkisinid_value
      navigationProperty: new_StateWorkIsInid
      linkedEntities: [new_states]
`
	r, err := NewResolver(&memorySource{name: "catalog.yaml", data: doc})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	def, ok := r.Resolve("new_accesslogs")
	if !ok {
		t.Fatalf("expected new_accesslogs to resolve")
	}
	linked := def.LinkedEntities()
	if len(linked["state_work_is_in"]) != 1 || linked["state_work_is_in"][0] != "new_states" {
		t.Fatalf("unexpected linked entities: %v", linked)
	}
}

func TestResolverRejectsDuplicateEntityType(t *testing.T) {
	doc := `[
  {"entityType": "contacts", "guidColumn": "contactid", "mappings": [{"field": "id", "column": "contactid"}]},
  {"entityType": "contacts", "guidColumn": "contactid", "mappings": [{"field": "id", "column": "contactid"}]}
]`
	_, err := NewResolver(&memorySource{name: "contacts.json", data: doc})
	if err == nil || !strings.Contains(err.Error(), "duplicate entity type") {
		t.Fatalf("expected duplicate entity type error, got %v", err)
	}
}

func TestResolverRejectsUnknownProtectedOp(t *testing.T) {
	doc := `[
  {
    "entityType": "contacts",
    "guidColumn": "contactid",
    "protectedFields": {"obliterate": ["id"]},
    "mappings": [{"field": "id", "column": "contactid"}]
  }
]`
	if _, err := NewResolver(&memorySource{name: "contacts.json", data: doc}); err == nil {
		t.Fatalf("expected unknown operation error")
	}
}

func TestResolverRejectsInvalidDefinition(t *testing.T) {
	doc := `[
  {
    "entityType": "contacts",
    "guidColumn": "contactid",
    "requiredFields": ["lightsaber_color"],
    "mappings": [{"field": "id", "column": "contactid"}]
  }
]`
	if _, err := NewResolver(&memorySource{name: "contacts.json", data: doc}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestResolverLaterSourcesOverride(t *testing.T) {
	override := `[
  {
    "entityType": "contacts",
    "guidColumn": "new_contactid",
    "mappings": [{"field": "id", "column": "new_contactid"}]
  }
]`
	r, err := NewResolver(
		&memorySource{name: "base.json", data: contactsJSON},
		&memorySource{name: "overlay.json", data: override},
	)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	def, ok := r.Resolve("contacts")
	if !ok || def.GuidColumn != "new_contactid" {
		t.Fatalf("expected overlay to win, got %+v", def)
	}
}

func TestResolverReloadPicksUpChanges(t *testing.T) {
	src := &memorySource{name: "contacts.json", data: contactsJSON}
	r, err := NewResolver(src)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	src.data = `[
  {"entityType": "accounts", "guidColumn": "accountid", "mappings": [{"field": "id", "column": "accountid"}]}
]`
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if _, ok := r.Resolve("contacts"); ok {
		t.Fatalf("expected contacts to be gone after reload")
	}
	if _, ok := r.Resolve("accounts"); !ok {
		t.Fatalf("expected accounts after reload")
	}
}

func TestResolverRegistrySorted(t *testing.T) {
	doc := `[
  {"entityType": "zebras", "guidColumn": "zebraid", "mappings": [{"field": "id", "column": "zebraid"}]},
  {"entityType": "accounts", "guidColumn": "accountid", "mappings": [{"field": "id", "column": "accountid"}]}
]`
	r, err := NewResolver(&memorySource{name: "catalog.json", data: doc})
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	reg := r.Registry()
	if len(reg) != 2 || reg[0].EntityType != "accounts" || reg[1].EntityType != "zebras" {
		t.Fatalf("expected sorted registry, got %+v", reg)
	}
	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "definitions.json")
	if err := os.WriteFile(path, []byte(contactsJSON), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	r, err := Load(filepath.Join(dir, "missing.json"), path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := r.Resolve("contacts"); !ok {
		t.Fatalf("expected contacts to resolve from disk")
	}
}
