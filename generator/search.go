package generator

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"crmgen/adapter"
	"crmgen/crm"
	"crmgen/logging/entityops"
)

// Criterion compares one entity field against a value of the field's Go
// type.
type Criterion struct {
	Field string
	Match adapter.Match
	Value any
}

// Group is a set of criteria that must all hold.
type Group struct {
	AllOf []Criterion
}

// Query searches for records matching any of the groups. Fields limits the
// returned columns unless ReturnAll is set.
type Query struct {
	AnyOf     []Group
	Limit     uint32
	ReturnAll bool
	Fields    []string
}

var timestampType = reflect.TypeOf(crm.Timestamp{})

// SearchRequest converts the query into the adapter's column space: field
// names become columns, values encode through the field codecs, plain string
// values gain single quotes, and an equality match on a timestamp becomes a
// one-second half-open window.
func (g *Generator[T]) SearchRequest(q Query) (adapter.SearchRequest, error) {
	req := adapter.SearchRequest{
		EntityType: g.def.EntityType,
		Limit:      q.Limit,
		ReturnAll:  q.ReturnAll,
	}

	if !q.ReturnAll {
		columns, err := g.returnColumns(q.Fields)
		if err != nil {
			return adapter.SearchRequest{}, err
		}
		req.Columns = columns
	}

	for _, group := range q.AnyOf {
		search := adapter.EntitySearch{}
		for _, c := range group.AllOf {
			criteria, err := g.convertCriterion(c)
			if err != nil {
				return adapter.SearchRequest{}, err
			}
			search.Criteria = append(search.Criteria, criteria...)
		}
		req.Searches = append(req.Searches, search)
	}

	// Guid columns arrive quoted from callers that treat them as plain
	// strings; the adapter wants the bare value.
	for i := range req.Searches {
		for j := range req.Searches[i].Criteria {
			criterion := &req.Searches[i].Criteria[j]
			if criterion.Column == g.def.GuidColumn {
				criterion.Value = trimSingleQuotes(criterion.Value)
			}
		}
	}
	return req, nil
}

// Search runs the query against the adapter and decodes the matches.
func (g *Generator[T]) Search(ctx context.Context, svc adapter.Service, q Query) ([]T, error) {
	req, err := g.SearchRequest(q)
	if err != nil {
		return nil, err
	}
	resp, err := svc.SearchEntities(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generator: search %s: %w", g.def.EntityType, err)
	}
	out := make([]T, 0, len(resp.Entities))
	for _, ent := range resp.Entities {
		decoded, err := g.FromEntity(ent)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	entityops.Searched(ctx, g.pub, entityops.SearchPayload{
		EntityType: g.def.EntityType,
		Groups:     len(q.AnyOf),
		Matches:    len(out),
	}, nil)
	return out, nil
}

// returnColumns validates the requested fields against the compendium and
// translates them to columns.
func (g *Generator[T]) returnColumns(fields []string) ([]string, error) {
	var invalid []string
	columns := make([]string, 0, len(fields))
	for _, field := range fields {
		b, ok := g.byField[field]
		if !ok {
			invalid = append(invalid, field)
			continue
		}
		columns = append(columns, b.mapping.Column)
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, fmt.Errorf("%w: %s", ErrInvalidReturnFields, strings.Join(invalid, ","))
	}
	return columns, nil
}

func (g *Generator[T]) convertCriterion(c Criterion) ([]adapter.Criterion, error) {
	b, ok := g.byField[c.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
	}
	if reflect.TypeOf(c.Value) != b.typ {
		return nil, fmt.Errorf("%w: field %q wants %s, got %T", ErrCriterionType, c.Field, b.typ, c.Value)
	}

	// An equality match on a timestamp column would only hit records created
	// at that exact second. Widen it to a one-second half-open window.
	if b.typ == timestampType && c.Match == adapter.MatchEqual {
		ts := c.Value.(crm.Timestamp)
		next := crm.Timestamp{Value: ts.Value.Add(time.Second)}
		return []adapter.Criterion{
			{Match: adapter.MatchGreaterThanOrEqual, Column: b.mapping.Column, Value: ts.String()},
			{Match: adapter.MatchLessThan, Column: b.mapping.Column, Value: next.String()},
		}, nil
	}

	value, _ := b.codec.Encode(reflect.ValueOf(c.Value))
	encoded := stringify(value)
	if value == nil {
		encoded = ""
	}
	// Plain string values travel single-quoted in search criteria.
	if b.typ.Kind() == reflect.String {
		encoded = "'" + encoded + "'"
	}
	return []adapter.Criterion{{Match: c.Match, Column: b.mapping.Column, Value: encoded}}, nil
}

func trimSingleQuotes(s string) string {
	s = strings.TrimPrefix(s, "'")
	return strings.TrimSuffix(s, "'")
}
