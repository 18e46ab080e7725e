package catalog

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Schema builds the machine-readable JSON schema for catalog files, covering
// both the array form and the object form keyed by entity type. Used by the
// CLI for validation and editor tooling.
func Schema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	entrySchema := reflector.ReflectFromType(reflect.TypeOf(EntryDocument{}))
	if entrySchema == nil {
		return nil, fmt.Errorf("failed to reflect entry schema")
	}
	entrySchema.Version = ""
	entrySchema.Title = "Entity Definition"
	entrySchema.Description = "One CRM entity definition: identity columns, CRUD policy, and the field compendium."

	arraySchema := &jsonschema.Schema{
		Type:        "array",
		Title:       "Array Catalog",
		Description: "Entity catalog expressed as an array of definition objects.",
		Items:       entrySchema,
	}

	objectSchema := &jsonschema.Schema{
		Type:                 "object",
		Title:                "Object Catalog",
		Description:          "Entity catalog expressed as an object keyed by entity type.",
		AdditionalProperties: entrySchema,
	}

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "CRM Entity Catalog",
		Description: "Entity definitions consumed by the generator runtime.",
		OneOf: []*jsonschema.Schema{
			arraySchema,
			objectSchema,
		},
	}
	return root, nil
}
