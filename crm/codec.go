package crm

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrNoCodec is returned when a field type has no registered codec.
	ErrNoCodec = errors.New("crm: no codec for field type")

	errNotSettable = errors.New("crm: decode target is not settable")
)

// Codec translates a single entity field between its Go representation and
// the value form carried by the CRM adapter.
//
// Encode returns the ultimate CRM-facing value (string, int64, float64, or
// bool). ok is false when the field is empty; writers translate an empty
// field into deletion semantics.
//
// Decode assigns the field from the raw API value and its optional display
// value. The field value must be settable.
type Codec interface {
	Encode(field reflect.Value) (value any, ok bool)
	Decode(field reflect.Value, raw, formatted string) error
}

var optionSetType = reflect.TypeOf((*OptionSet)(nil)).Elem()

// CodecRegistry resolves codecs by field type. The zero value is not usable;
// construct one with NewCodecRegistry, which seeds the built-in codecs for
// scalars, Guid, Timestamp, Str, Int, and any type whose pointer implements
// OptionSet.
type CodecRegistry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Codec
}

// NewCodecRegistry returns a registry seeded with the built-in codecs.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{byType: make(map[reflect.Type]Codec)}
	r.Register(reflect.TypeOf(Guid{}), guidCodec{})
	r.Register(reflect.TypeOf(Timestamp{}), timestampCodec{})
	r.Register(reflect.TypeOf(Str{}), strCodec{})
	r.Register(reflect.TypeOf(Int{}), intCodec{})
	return r
}

// Register binds a codec to a concrete field type, replacing any previous
// binding.
func (r *CodecRegistry) Register(t reflect.Type, c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = c
}

// Lookup resolves the codec for a field type: an explicit registration wins,
// then option-set detection, then the scalar fallback by kind.
func (r *CodecRegistry) Lookup(t reflect.Type) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	if reflect.PointerTo(t).Implements(optionSetType) {
		return optionSetCodec{}, true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return scalarCodec{}, true
	}
	return nil, false
}

type guidCodec struct{}

func (guidCodec) Encode(field reflect.Value) (any, bool) {
	g := field.Interface().(Guid)
	return g.Value, g.Value != ""
}

func (guidCodec) Decode(field reflect.Value, raw, formatted string) error {
	if !field.CanSet() {
		return errNotSettable
	}
	field.Set(reflect.ValueOf(Guid{Value: raw, FormattedValue: formatted}))
	return nil
}

type timestampCodec struct{}

func (timestampCodec) Encode(field reflect.Value) (any, bool) {
	t := field.Interface().(Timestamp)
	if t.IsZero() {
		return "", false
	}
	return t.String(), true
}

func (timestampCodec) Decode(field reflect.Value, raw, formatted string) error {
	if !field.CanSet() {
		return errNotSettable
	}
	parsed, err := time.Parse(TimeLayout, raw)
	if err != nil {
		return fmt.Errorf("crm: invalid timestamp %q: %w", raw, err)
	}
	field.Set(reflect.ValueOf(Timestamp{Value: parsed, FormattedValue: formatted}))
	return nil
}

type strCodec struct{}

func (strCodec) Encode(field reflect.Value) (any, bool) {
	s := field.Interface().(Str)
	return s.Value, s.Value != ""
}

func (strCodec) Decode(field reflect.Value, raw, formatted string) error {
	if !field.CanSet() {
		return errNotSettable
	}
	field.Set(reflect.ValueOf(Str{Value: raw, FormattedValue: formatted}))
	return nil
}

type intCodec struct{}

// Encode always reports ok: a zero Int renders as "0" rather than deleting
// the column.
func (intCodec) Encode(field reflect.Value) (any, bool) {
	i := field.Interface().(Int)
	return strconv.FormatInt(i.Value, 10), true
}

func (intCodec) Decode(field reflect.Value, raw, formatted string) error {
	if !field.CanSet() {
		return errNotSettable
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("crm: invalid integer %q: %w", raw, err)
	}
	field.Set(reflect.ValueOf(Int{Value: v, FormattedValue: formatted}))
	return nil
}

type optionSetCodec struct{}

// optionValuer is the read half of OptionSet. Value copies of an option-set
// type satisfy it even though SetOption needs a pointer receiver.
type optionValuer interface {
	OptionValue() (int64, bool)
}

func (optionSetCodec) Encode(field reflect.Value) (any, bool) {
	set, ok := field.Interface().(optionValuer)
	if !ok {
		// OptionValue declared on the pointer type; reading a struct field
		// yields an unaddressable value, so work on a copy.
		ptr := reflect.New(field.Type())
		ptr.Elem().Set(field)
		if set, ok = ptr.Interface().(optionValuer); !ok {
			return "", false
		}
	}
	code, ok := set.OptionValue()
	if !ok {
		return "", false
	}
	return code, true
}

func (optionSetCodec) Decode(field reflect.Value, raw, formatted string) error {
	if !field.CanAddr() {
		return errNotSettable
	}
	set, ok := field.Addr().Interface().(OptionSet)
	if !ok {
		return fmt.Errorf("%w (%s)", ErrNoCodec, field.Type())
	}
	code := int64(0)
	if raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("crm: invalid option value %q: %w", raw, err)
		}
		code = parsed
	}
	return set.SetOption(code, formatted)
}

type scalarCodec struct{}

func (scalarCodec) Encode(field reflect.Value) (any, bool) {
	switch field.Kind() {
	case reflect.String:
		s := field.String()
		return s, s != ""
	case reflect.Bool:
		b := field.Bool()
		return b, b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := field.Int()
		return v, v != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int64(field.Uint())
		return v, v != 0
	case reflect.Float32, reflect.Float64:
		v := field.Float()
		return v, v != 0
	default:
		return "", false
	}
}

func (scalarCodec) Decode(field reflect.Value, raw, formatted string) error {
	if !field.CanSet() {
		return errNotSettable
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		field.SetBool(raw == "True")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("crm: invalid integer %q: %w", raw, err)
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("crm: invalid integer %q: %w", raw, err)
		}
		field.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("crm: invalid float %q: %w", raw, err)
		}
		field.SetFloat(v)
	default:
		return fmt.Errorf("%w (%s)", ErrNoCodec, field.Type())
	}
	return nil
}
