package generator

import "errors"

var (
	// ErrRequiredField is returned when a required field would encode empty.
	ErrRequiredField = errors.New("generator: required field cannot be left blank or deleted")
	// ErrUnknownField is returned when an operation references a field the
	// definition does not map.
	ErrUnknownField = errors.New("generator: unknown field")
	// ErrUnboundField is returned at construction when a mapped field has no
	// matching struct field tag.
	ErrUnboundField = errors.New("generator: mapped field has no struct binding")
	// ErrMissingNavigation is returned when a lookup field is written without
	// a navigation property in its mapping.
	ErrMissingNavigation = errors.New("generator: no navigation property set for field")
	// ErrMissingLinkedEntity is returned when a lookup field is written
	// without a linked entity in its mapping.
	ErrMissingLinkedEntity = errors.New("generator: no linked entity set for field")
	// ErrEntityTypeMismatch is returned when decoding an adapter entity of a
	// different type than the generator was built for.
	ErrEntityTypeMismatch = errors.New("generator: adapter entity type does not match definition")
	// ErrInvalidReturnFields is returned when a search names return fields the
	// definition does not map.
	ErrInvalidReturnFields = errors.New("generator: invalid fields to return")
	// ErrCriterionType is returned when a search criterion value is not the
	// field's Go type.
	ErrCriterionType = errors.New("generator: criterion value type does not match field type")
	// ErrUnsupportedValue is returned when a codec produces a value that
	// cannot be carried in a key/value pair.
	ErrUnsupportedValue = errors.New("generator: unsupported key/value pair value type")
	// ErrMissingGuid is returned when an update is attempted without a record
	// guid.
	ErrMissingGuid = errors.New("generator: update requires a record guid")
	// ErrNotStruct is returned when the generator type parameter is not a
	// struct.
	ErrNotStruct = errors.New("generator: entity type must be a struct")
)
