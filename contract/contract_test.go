package contract

import (
	"strings"
	"testing"
)

func validDefinition() Definition {
	return Definition{
		EntityType:     "contacts",
		GuidColumn:     "contactid",
		CreationSource: "100000011",
		RequiredFields: []string{"first_name"},
		ProtectedFields: map[CrudOp][]string{
			CrudUpdate: {"owner_id"},
		},
		Mappings: []FieldMapping{
			{Field: "id", Column: "contactid"},
			{Field: "first_name", Column: "firstname"},
			{Field: "owner_id", Column: "_ownerid_value", NavigationProperty: "ownerid", LinkedEntities: []string{"systemusers"}},
		},
	}
}

func TestDefinitionValidate(t *testing.T) {
	if err := validDefinition().Validate(); err != nil {
		t.Fatalf("expected valid definition, got %v", err)
	}
}

func TestDefinitionValidateRejectsEmptyEntityType(t *testing.T) {
	def := validDefinition()
	def.EntityType = "  "
	if err := def.Validate(); err == nil {
		t.Fatalf("expected error for empty entity type")
	}
}

func TestDefinitionValidateRejectsDuplicateField(t *testing.T) {
	def := validDefinition()
	def.Mappings = append(def.Mappings, FieldMapping{Field: "first_name", Column: "firstname2"})
	err := def.Validate()
	if err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if !strings.Contains(err.Error(), "duplicate field") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDefinitionValidateRejectsOrphanNavigation(t *testing.T) {
	def := validDefinition()
	def.Mappings = append(def.Mappings, FieldMapping{
		Field:              "location",
		Column:             "_new_locationid_value",
		NavigationProperty: "new_LocationId",
	})
	if err := def.Validate(); err == nil {
		t.Fatalf("expected orphan navigation error")
	}
}

func TestDefinitionValidateRejectsUnmappedRequired(t *testing.T) {
	def := validDefinition()
	def.RequiredFields = append(def.RequiredFields, "lightsaber_color")
	if err := def.Validate(); err == nil {
		t.Fatalf("expected unmapped required field error")
	}
}

func TestDefinitionValidateRejectsUnmappedProtected(t *testing.T) {
	def := validDefinition()
	def.ProtectedFields[CrudCreate] = []string{"lightsaber_color"}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected unmapped protected field error")
	}
}

func TestParseCrudOpRoundTrip(t *testing.T) {
	for _, op := range []CrudOp{CrudCreate, CrudRead, CrudUpdate, CrudDelete} {
		parsed, err := ParseCrudOp(op.String())
		if err != nil {
			t.Fatalf("ParseCrudOp(%q) failed: %v", op.String(), err)
		}
		if parsed != op {
			t.Fatalf("expected %v, got %v", op, parsed)
		}
	}
	if _, err := ParseCrudOp("obliterate"); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestDefinitionLookups(t *testing.T) {
	def := validDefinition()
	columns := def.Columns()
	if columns["first_name"] != "firstname" {
		t.Fatalf("expected firstname column, got %q", columns["first_name"])
	}
	navs := def.NavigationProperties()
	if len(navs) != 1 || navs["owner_id"] != "ownerid" {
		t.Fatalf("unexpected navigation properties: %v", navs)
	}
	linked := def.LinkedEntities()
	if len(linked["owner_id"]) != 1 || linked["owner_id"][0] != "systemusers" {
		t.Fatalf("unexpected linked entities: %v", linked)
	}
	if _, ok := def.FieldSet()["id"]; !ok {
		t.Fatalf("expected id in field set")
	}
	if !def.IsRequired("first_name") || def.IsRequired("id") {
		t.Fatalf("unexpected required reporting")
	}
	if !def.IsProtected("owner_id", CrudUpdate) || def.IsProtected("owner_id", CrudCreate) {
		t.Fatalf("unexpected protected reporting")
	}
}

func TestRegistryRejectsDuplicateEntityType(t *testing.T) {
	reg := Registry{validDefinition(), validDefinition()}
	if err := reg.Validate(); err == nil {
		t.Fatalf("expected duplicate entity type error")
	}
}

func TestRegistryIndex(t *testing.T) {
	reg := Registry{validDefinition()}
	index, err := reg.Index()
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if _, ok := index["contacts"]; !ok {
		t.Fatalf("expected contacts in index")
	}
}
