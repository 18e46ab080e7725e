package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"crmgen/adapter"
	"crmgen/crm"
)

func TestSearchRequestQuotesPlainStrings(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	req, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{
				{Field: "first_name", Match: adapter.MatchEqual, Value: "steve"},
				{Field: "last_name", Match: adapter.MatchEqual, Value: "bagni"},
			}},
			{AllOf: []Criterion{
				{Field: "last_name", Match: adapter.MatchContains, Value: "blah@blah.com"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("SearchRequest failed: %v", err)
	}
	if req.EntityType != "new_accesslogs" || !req.ReturnAll {
		t.Fatalf("unexpected request header: %+v", req)
	}
	if len(req.Searches) != 2 {
		t.Fatalf("expected two search groups, got %d", len(req.Searches))
	}
	first := req.Searches[0].Criteria
	if len(first) != 2 || first[0].Value != "'steve'" || first[1].Value != "'bagni'" {
		t.Fatalf("unexpected first group: %+v", first)
	}
	if first[0].Column != "new_firstname" || first[1].Column != "new_lastname" {
		t.Fatalf("unexpected columns: %+v", first)
	}
	second := req.Searches[1].Criteria
	if len(second) != 1 || second[0].Value != "'blah@blah.com'" || second[0].Match != adapter.MatchContains {
		t.Fatalf("unexpected second group: %+v", second)
	}
}

func TestSearchRequestDoesNotQuoteTypedValues(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	req, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{
				{Field: "access_log_number", Match: adapter.MatchEqual, Value: crm.Str{Value: "ACC-1"}},
				{Field: "work_region", Match: adapter.MatchEqual, Value: crm.WorkRegion{Region: crm.WorkRegionCaliforniaLACounty}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("SearchRequest failed: %v", err)
	}
	criteria := req.Searches[0].Criteria
	if criteria[0].Value != "ACC-1" {
		t.Fatalf("expected unquoted Str value, got %q", criteria[0].Value)
	}
	if criteria[1].Value != "16" {
		t.Fatalf("expected option code, got %q", criteria[1].Value)
	}
}

func TestSearchRequestExpandsTimestampEquality(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	ts := crm.Timestamp{Value: time.Unix(1234567890, 0)}
	req, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{{Field: "created_on", Match: adapter.MatchEqual, Value: ts}}},
		},
	})
	if err != nil {
		t.Fatalf("SearchRequest failed: %v", err)
	}
	criteria := req.Searches[0].Criteria
	if len(criteria) != 2 {
		t.Fatalf("expected a two-sided window, got %+v", criteria)
	}
	if criteria[0].Match != adapter.MatchGreaterThanOrEqual || criteria[0].Value != "2009-02-13T23:31:30Z" {
		t.Fatalf("unexpected lower bound: %+v", criteria[0])
	}
	if criteria[1].Match != adapter.MatchLessThan || criteria[1].Value != "2009-02-13T23:31:31Z" {
		t.Fatalf("unexpected upper bound: %+v", criteria[1])
	}
	if criteria[0].Column != "createdon" || criteria[1].Column != "createdon" {
		t.Fatalf("unexpected columns: %+v", criteria)
	}
}

func TestSearchRequestTimestampInequalityKept(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	ts := crm.Timestamp{Value: time.Unix(1234567890, 0)}
	req, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{{Field: "created_on", Match: adapter.MatchLessThan, Value: ts}}},
		},
	})
	if err != nil {
		t.Fatalf("SearchRequest failed: %v", err)
	}
	criteria := req.Searches[0].Criteria
	if len(criteria) != 1 || criteria[0].Match != adapter.MatchLessThan || criteria[0].Value != "2009-02-13T23:31:30Z" {
		t.Fatalf("unexpected criteria: %+v", criteria)
	}
}

func TestSearchRequestStripsGuidQuotes(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	req, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{{Field: "id", Match: adapter.MatchContains, Value: crm.Guid{Value: "'1234'"}}}},
		},
	})
	if err != nil {
		t.Fatalf("SearchRequest failed: %v", err)
	}
	criterion := req.Searches[0].Criteria[0]
	if criterion.Column != "new_accesslogid" {
		t.Fatalf("unexpected column %q", criterion.Column)
	}
	if criterion.Value != "1234" {
		t.Fatalf("expected bare guid, got %q", criterion.Value)
	}
}

func TestSearchRequestTranslatesReturnFields(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	req, err := gen.SearchRequest(Query{Fields: []string{"first_name", "work_region"}})
	if err != nil {
		t.Fatalf("SearchRequest failed: %v", err)
	}
	if len(req.Columns) != 2 || req.Columns[0] != "new_firstname" || req.Columns[1] != "new_workregion" {
		t.Fatalf("unexpected columns: %v", req.Columns)
	}
}

func TestSearchRequestRejectsInvalidReturnFields(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	_, err := gen.SearchRequest(Query{Fields: []string{"lightsaber_color", "first_name", "blaster_model"}})
	if !errors.Is(err, ErrInvalidReturnFields) {
		t.Fatalf("expected ErrInvalidReturnFields, got %v", err)
	}
	expected := "invalid fields to return: blaster_model,lightsaber_color"
	if got := err.Error(); got != "generator: "+expected {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestSearchRequestRejectsUnknownField(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	_, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{{Field: "lightsaber_color", Match: adapter.MatchEqual, Value: "red"}}},
		},
	})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSearchRequestRejectsMismatchedValueType(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	_, err := gen.SearchRequest(Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{{Field: "created_on", Match: adapter.MatchEqual, Value: "2009-02-13"}}},
		},
	})
	if !errors.Is(err, ErrCriterionType) {
		t.Fatalf("expected ErrCriterionType, got %v", err)
	}
}

func TestSearchDecodesMatches(t *testing.T) {
	gen := newAccessLogGenerator(t, accessLogDefinition())
	svc := &fakeService{
		searchResp: adapter.SearchResponse{Entities: []adapter.Entity{
			{EntityType: "new_accesslogs", Fields: []adapter.KeyValuePair{
				{Key: "new_firstname", StrValue: strptr("steve")},
				{Key: "new_lastname", StrValue: strptr("bagni")},
			}},
		}},
	}
	results, err := gen.Search(context.Background(), svc, Query{
		ReturnAll: true,
		AnyOf: []Group{
			{AllOf: []Criterion{{Field: "first_name", Match: adapter.MatchEqual, Value: "steve"}}},
		},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].FirstName != "steve" || results[0].LastName != "bagni" {
		t.Fatalf("unexpected results: %+v", results)
	}
	if svc.searchReq == nil || len(svc.searchReq.Searches) != 1 {
		t.Fatalf("unexpected request: %+v", svc.searchReq)
	}
}
