// Package adapter defines the generic entity surface of the CRM adapter
// service: untyped key/value records addressed by raw CRM column names, the
// search message shape, and the Service interface generators call.
package adapter

import (
	"strings"

	"crmgen/crm"
)

// FormattedValueAnnotation is the suffix the CRM API appends to a column key
// when reporting the display value for an option set or guid column.
const FormattedValueAnnotation = "@OData.Community.Display.V1.FormattedValue"

// Match enumerates the comparison operators supported by adapter searches.
type Match string

const (
	MatchUnspecified        Match = ""
	MatchEqual              Match = "equal"
	MatchNotEqual           Match = "not-equal"
	MatchContains           Match = "contains"
	MatchGreaterThanOrEqual Match = "gte"
	MatchLessThan           Match = "lt"
)

// KeyValuePair carries one column of an adapter entity. Exactly one of the
// typed value fields is set alongside the plain string Value. Lookup columns
// additionally name the linked entity set the value references, prefixed
// with "/".
type KeyValuePair struct {
	Key          string   `json:"key"`
	Value        string   `json:"value,omitempty"`
	StrValue     *string  `json:"strValue,omitempty"`
	IntValue     *int64   `json:"intValue,omitempty"`
	FloatValue   *float64 `json:"floatValue,omitempty"`
	BoolValue    *bool    `json:"boolValue,omitempty"`
	LinkedEntity string   `json:"linkedEntity,omitempty"`
}

// TypedValue returns whichever typed value field is set.
func (kvp KeyValuePair) TypedValue() (any, bool) {
	switch {
	case kvp.StrValue != nil:
		return *kvp.StrValue, true
	case kvp.IntValue != nil:
		return *kvp.IntValue, true
	case kvp.FloatValue != nil:
		return *kvp.FloatValue, true
	case kvp.BoolValue != nil:
		return *kvp.BoolValue, true
	default:
		return nil, false
	}
}

// IsFormattedValue reports whether the pair carries a display value, and if
// so for which column.
func (kvp KeyValuePair) IsFormattedValue() (column string, ok bool) {
	column, found := strings.CutSuffix(kvp.Key, FormattedValueAnnotation)
	if !found {
		return "", false
	}
	return column, true
}

// Entity is an untyped CRM record: the entity set name, an optional guid,
// and the column values.
type Entity struct {
	EntityType string         `json:"entityType"`
	Guid       *crm.Guid      `json:"guid,omitempty"`
	Fields     []KeyValuePair `json:"fields"`
}

// Criterion compares one raw CRM column against a pre-encoded value.
type Criterion struct {
	Match  Match  `json:"match"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// EntitySearch groups criteria that must all hold (logical AND).
type EntitySearch struct {
	Criteria []Criterion `json:"criteria"`
}

// SearchRequest asks the adapter for entities matching any of the grouped
// searches (logical OR across Searches). Columns limits the returned columns
// unless ReturnAll is set.
type SearchRequest struct {
	EntityType string         `json:"entityType"`
	Searches   []EntitySearch `json:"searches,omitempty"`
	Limit      uint32         `json:"limit,omitempty"`
	ReturnAll  bool           `json:"returnAll,omitempty"`
	Columns    []string       `json:"columns,omitempty"`
}

// SearchResponse carries the entities matching a search.
type SearchResponse struct {
	Entities []Entity `json:"entities"`
}

// CreateRequest asks the adapter to create the entity. The guid is left
// unset; the adapter assigns it.
type CreateRequest struct {
	Entity Entity `json:"entity"`
}

// CreateResponse returns the authoritative created record.
type CreateResponse struct {
	Entity Entity `json:"entity"`
}

// UpdateRequest asks the adapter to apply the entity's fields to the record
// identified by its guid. Columns carrying an empty value are deleted.
type UpdateRequest struct {
	Entity Entity `json:"entity"`
}

// UpdateResponse returns the authoritative updated record.
type UpdateResponse struct {
	Entity Entity `json:"entity"`
}
