// Package generator translates strongly-typed entity structs to and from the
// untyped key/value records spoken by the CRM adapter. A Generator is built
// for one entity definition and binds each mapped field to a struct field via
// the `crm` tag, resolving a codec per field type.
package generator

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"crmgen/adapter"
	"crmgen/contract"
	"crmgen/crm"
	"crmgen/logging"
	"crmgen/logging/entityops"
)

// Config carries the generator's collaborators. Zero values fall back to the
// built-in codec registry and a no-op publisher.
type Config struct {
	Codecs    *crm.CodecRegistry
	Publisher logging.Publisher
}

// fieldBinding joins one compendium mapping to the struct field it reads and
// writes, together with the codec for that field's type.
type fieldBinding struct {
	mapping contract.FieldMapping
	index   []int
	typ     reflect.Type
	codec   crm.Codec
}

// Generator translates values of T for one CRM entity type.
type Generator[T any] struct {
	def      contract.Definition
	pub      logging.Publisher
	bindings []fieldBinding
	byField  map[string]*fieldBinding
	byColumn map[string]*fieldBinding
}

// New builds a generator for T from the entity definition. Every mapped field
// must have a struct field carrying a matching `crm` tag, and every bound
// field type must resolve to a codec.
func New[T any](def contract.Definition, cfg Config) (*Generator[T], error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	codecs := cfg.Codecs
	if codecs == nil {
		codecs = crm.NewCodecRegistry()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}

	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w (%T)", ErrNotStruct, zero)
	}

	tagged := make(map[string]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("crm")
		if !ok || tag == "" || tag == "-" {
			continue
		}
		tagged[tag] = sf
	}

	g := &Generator[T]{
		def:      def,
		pub:      pub,
		bindings: make([]fieldBinding, 0, len(def.Mappings)),
		byField:  make(map[string]*fieldBinding, len(def.Mappings)),
		byColumn: make(map[string]*fieldBinding, len(def.Mappings)),
	}
	for _, m := range def.Mappings {
		sf, ok := tagged[m.Field]
		if !ok {
			return nil, fmt.Errorf("%w: %q on %s", ErrUnboundField, m.Field, t)
		}
		codec, ok := codecs.Lookup(sf.Type)
		if !ok {
			return nil, fmt.Errorf("generator: field %q: %w (%s)", m.Field, crm.ErrNoCodec, sf.Type)
		}
		g.bindings = append(g.bindings, fieldBinding{
			mapping: m,
			index:   sf.Index,
			typ:     sf.Type,
			codec:   codec,
		})
		b := &g.bindings[len(g.bindings)-1]
		g.byField[m.Field] = b
		g.byColumn[m.Column] = b
	}
	return g, nil
}

// Definition returns the entity definition the generator was built for.
func (g *Generator[T]) Definition() contract.Definition { return g.def }

// KeyValuePairs encodes the entity's mapped fields for the given operation.
// Fields protected for the operation are skipped. An empty field encodes as a
// deletion pair unless it is listed in alreadyEmpty, in which case it is
// skipped; an empty required field is an error.
func (g *Generator[T]) KeyValuePairs(entity T, op contract.CrudOp, alreadyEmpty []string) ([]adapter.KeyValuePair, error) {
	v := reflect.ValueOf(entity)
	kvps := make([]adapter.KeyValuePair, 0, len(g.bindings))
	for i := range g.bindings {
		b := &g.bindings[i]
		if g.def.IsProtected(b.mapping.Field, op) {
			continue
		}
		value, ok := b.codec.Encode(v.FieldByIndex(b.index))
		if s, isStr := value.(string); ok && isStr && s == "" {
			ok = false
		}
		if !ok {
			if g.def.IsRequired(b.mapping.Field) {
				return nil, fmt.Errorf("%w: %q", ErrRequiredField, b.mapping.Field)
			}
			if containsField(alreadyEmpty, b.mapping.Field) {
				continue
			}
			kvp, err := g.deletionKVP(b)
			if err != nil {
				return nil, err
			}
			kvps = append(kvps, kvp)
			continue
		}
		kvp, err := g.valueKVP(b, value)
		if err != nil {
			return nil, err
		}
		kvps = append(kvps, kvp)
	}
	return kvps, nil
}

// ToEntity encodes the entity into an adapter record. The guid is left out;
// create calls never carry one and update calls attach it separately.
func (g *Generator[T]) ToEntity(entity T, op contract.CrudOp, alreadyEmpty []string) (adapter.Entity, error) {
	kvps, err := g.KeyValuePairs(entity, op, alreadyEmpty)
	if err != nil {
		return adapter.Entity{}, err
	}
	return adapter.Entity{EntityType: g.def.EntityType, Fields: kvps}, nil
}

// FromEntity decodes an adapter record into T. Formatted-value annotations
// are paired with their columns; columns the definition does not map are
// ignored.
func (g *Generator[T]) FromEntity(ent adapter.Entity) (T, error) {
	var out T
	if ent.EntityType != g.def.EntityType {
		return out, fmt.Errorf("%w: got %q, want %q", ErrEntityTypeMismatch, ent.EntityType, g.def.EntityType)
	}

	raws := make(map[string]string, len(ent.Fields))
	formatted := make(map[string]string)
	for _, kvp := range ent.Fields {
		if column, ok := kvp.IsFormattedValue(); ok {
			formatted[column] = rawString(kvp)
			continue
		}
		raws[kvp.Key] = rawString(kvp)
	}

	v := reflect.ValueOf(&out).Elem()
	for column, raw := range raws {
		b, ok := g.byColumn[column]
		if !ok {
			continue
		}
		if err := b.codec.Decode(v.FieldByIndex(b.index), raw, formatted[column]); err != nil {
			return out, fmt.Errorf("generator: field %q: %w", b.mapping.Field, err)
		}
	}
	return out, nil
}

// AlreadyEmptyFields reports which mapped fields of the entity encode empty.
// Callers pass the result for the record's current state into Update so that
// fields that were empty before stay untouched rather than re-deleted.
func (g *Generator[T]) AlreadyEmptyFields(entity T) []string {
	v := reflect.ValueOf(entity)
	empty := make([]string, 0)
	for i := range g.bindings {
		b := &g.bindings[i]
		value, ok := b.codec.Encode(v.FieldByIndex(b.index))
		if s, isStr := value.(string); ok && isStr && s == "" {
			ok = false
		}
		if !ok {
			empty = append(empty, b.mapping.Field)
		}
	}
	return empty
}

// Create sends the entity to the adapter and decodes the authoritative
// record it returns.
func (g *Generator[T]) Create(ctx context.Context, svc adapter.Service, entity T) (T, error) {
	var zero T
	ent, err := g.ToEntity(entity, contract.CrudCreate, nil)
	if err != nil {
		return zero, err
	}
	resp, err := svc.CreateEntity(ctx, adapter.CreateRequest{Entity: ent})
	if err != nil {
		return zero, fmt.Errorf("generator: create %s: %w", g.def.EntityType, err)
	}
	created, err := g.FromEntity(resp.Entity)
	if err != nil {
		return zero, err
	}
	entityops.Created(ctx, g.pub, g.recordRef(resp.Entity.Guid), g.mutationPayload(ent.Fields), nil)
	return created, nil
}

// Update applies the entity's fields to the record identified by guid. When
// existing is non-nil, fields whose encoded (column, value) pair matches the
// existing record are filtered out; if nothing differs the adapter round trip
// is skipped and the existing value is returned unchanged.
func (g *Generator[T]) Update(ctx context.Context, svc adapter.Service, entity T, guid crm.Guid, alreadyEmpty []string, existing *T) (T, error) {
	var zero T
	if guid.IsZero() {
		return zero, ErrMissingGuid
	}
	ent, err := g.ToEntity(entity, contract.CrudUpdate, alreadyEmpty)
	if err != nil {
		return zero, err
	}

	if existing != nil {
		existingEnt, err := g.ToEntity(*existing, contract.CrudUpdate, alreadyEmpty)
		if err != nil {
			return zero, err
		}
		ent.Fields = diffFields(ent.Fields, existingEnt.Fields)
		if len(ent.Fields) == 0 {
			entityops.Unchanged(ctx, g.pub, g.recordRef(&guid), g.def.EntityType, nil)
			return *existing, nil
		}
	}

	ent.Guid = &guid
	resp, err := svc.UpdateEntity(ctx, adapter.UpdateRequest{Entity: ent})
	if err != nil {
		return zero, fmt.Errorf("generator: update %s: %w", g.def.EntityType, err)
	}
	updated, err := g.FromEntity(resp.Entity)
	if err != nil {
		return zero, err
	}
	entityops.Updated(ctx, g.pub, g.recordRef(&guid), g.mutationPayload(ent.Fields), nil)
	return updated, nil
}

type diffKey struct {
	key   string
	value any
}

// diffFields keeps the pairs whose (key, typed value) is absent from the
// baseline.
func diffFields(proposed, baseline []adapter.KeyValuePair) []adapter.KeyValuePair {
	seen := make(map[diffKey]struct{}, len(baseline))
	for _, kvp := range baseline {
		seen[diffKeyFor(kvp)] = struct{}{}
	}
	out := make([]adapter.KeyValuePair, 0, len(proposed))
	for _, kvp := range proposed {
		if _, exists := seen[diffKeyFor(kvp)]; exists {
			continue
		}
		out = append(out, kvp)
	}
	return out
}

func diffKeyFor(kvp adapter.KeyValuePair) diffKey {
	if value, ok := kvp.TypedValue(); ok {
		return diffKey{key: kvp.Key, value: value}
	}
	return diffKey{key: kvp.Key, value: kvp.Value}
}

// deletionKVP encodes an empty field. Lookup fields are addressed through
// their navigation property and linked entity; plain fields through their
// column. The empty string value instructs the adapter to delete the column.
func (g *Generator[T]) deletionKVP(b *fieldBinding) (adapter.KeyValuePair, error) {
	if b.mapping.NavigationProperty != "" {
		linked, err := firstLinkedEntity(b.mapping)
		if err != nil {
			return adapter.KeyValuePair{}, err
		}
		kvp, err := typedKVP(b.mapping.NavigationProperty, "")
		if err != nil {
			return adapter.KeyValuePair{}, err
		}
		kvp.LinkedEntity = linked
		return kvp, nil
	}
	return typedKVP(b.mapping.Column, "")
}

// valueKVP encodes a non-empty field.
func (g *Generator[T]) valueKVP(b *fieldBinding, value any) (adapter.KeyValuePair, error) {
	if len(b.mapping.LinkedEntities) > 0 {
		if b.mapping.NavigationProperty == "" {
			return adapter.KeyValuePair{}, fmt.Errorf("%w: %q", ErrMissingNavigation, b.mapping.Field)
		}
		linked, err := firstLinkedEntity(b.mapping)
		if err != nil {
			return adapter.KeyValuePair{}, err
		}
		kvp, err := typedKVP(b.mapping.NavigationProperty, value)
		if err != nil {
			return adapter.KeyValuePair{}, err
		}
		kvp.LinkedEntity = linked
		return kvp, nil
	}
	return typedKVP(b.mapping.Column, value)
}

// firstLinkedEntity normalizes the first linked entity name to the
// "/"-prefixed form the adapter expects. Bare names are preferred in
// definitions but a legacy leading "/" is tolerated.
func firstLinkedEntity(m contract.FieldMapping) (string, error) {
	if len(m.LinkedEntities) == 0 {
		return "", fmt.Errorf("%w: %q", ErrMissingLinkedEntity, m.Field)
	}
	return "/" + strings.TrimLeft(m.LinkedEntities[0], "/"), nil
}

// typedKVP builds a pair carrying both the plain string rendering and the
// matching typed value field.
func typedKVP(key string, value any) (adapter.KeyValuePair, error) {
	kvp := adapter.KeyValuePair{Key: key, Value: stringify(value)}
	switch v := value.(type) {
	case string:
		kvp.StrValue = &v
	case int64:
		kvp.IntValue = &v
	case float64:
		kvp.FloatValue = &v
	case bool:
		kvp.BoolValue = &v
	default:
		return adapter.KeyValuePair{}, fmt.Errorf("%w (%T)", ErrUnsupportedValue, value)
	}
	return kvp, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(v)
	}
}

// rawString flattens a pair to the string form codecs decode from,
// preferring the typed value when one is set.
func rawString(kvp adapter.KeyValuePair) string {
	if value, ok := kvp.TypedValue(); ok {
		return stringify(value)
	}
	return kvp.Value
}

func (g *Generator[T]) recordRef(guid *crm.Guid) logging.EntityRef {
	ref := logging.EntityRef{ID: g.def.EntityType, Kind: logging.EntityKindRecord}
	if guid != nil && !guid.IsZero() {
		ref.ID = guid.Value
	}
	return ref
}

func (g *Generator[T]) mutationPayload(kvps []adapter.KeyValuePair) entityops.MutationPayload {
	payload := entityops.MutationPayload{EntityType: g.def.EntityType}
	for _, kvp := range kvps {
		if kvp.Value == "" {
			payload.Deleted = append(payload.Deleted, kvp.Key)
			continue
		}
		payload.Columns = append(payload.Columns, kvp.Key)
	}
	return payload
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}
