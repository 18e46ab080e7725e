// Package crm models the typed field values exchanged with the CRM adapter
// and the codecs that translate them to and from the adapter's string form.
package crm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the timestamp format accepted by the CRM API. Timestamps are
// always rendered in UTC.
const TimeLayout = "2006-01-02T15:04:05Z"

// Guid carries a CRM record reference together with the display value the
// API reports for it.
type Guid struct {
	Value          string `json:"value"`
	FormattedValue string `json:"formattedValue,omitempty"`
}

// NewGuid validates value and returns a Guid normalized to the canonical
// lowercase form.
func NewGuid(value string) (Guid, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return Guid{}, fmt.Errorf("crm: invalid guid %q: %w", value, err)
	}
	return Guid{Value: id.String()}, nil
}

// IsZero reports whether the guid carries no reference.
func (g Guid) IsZero() bool { return g.Value == "" }

// Valid reports whether the guid parses as an RFC 4122 identifier.
func (g Guid) Valid() bool {
	_, err := uuid.Parse(g.Value)
	return err == nil
}

// Timestamp carries a point in time together with its display value.
type Timestamp struct {
	Value          time.Time `json:"value"`
	FormattedValue string    `json:"formattedValue,omitempty"`
}

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool { return t.Value.IsZero() }

// String renders the timestamp in the CRM API layout, or "" when unset.
func (t Timestamp) String() string {
	if t.Value.IsZero() {
		return ""
	}
	return t.Value.UTC().Format(TimeLayout)
}

// Str carries a string column value together with its display value.
type Str struct {
	Value          string `json:"value"`
	FormattedValue string `json:"formattedValue,omitempty"`
}

// Int carries an integer column value together with its display value.
type Int struct {
	Value          int64  `json:"value"`
	FormattedValue string `json:"formattedValue,omitempty"`
}
