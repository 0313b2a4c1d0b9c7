package patient

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Form field names shared by the portal forms and the API payload.
const (
	FieldName           = "name"
	FieldAge            = "age"
	FieldMedicalHistory = "medical_history"
)

// ID is the server-assigned patient identifier. It is opaque to the portal;
// the API may send it as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("patient id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("patient id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as JSON numbers so the wire format matches
// what the API hands out.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Record is one patient as returned by GET /api/patients.
type Record struct {
	ID             ID         `json:"id"`
	Name           string     `json:"name"`
	Age            *int       `json:"age"`
	MedicalHistory *string    `json:"medical_history"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`

	// RawAge keeps an age value that could not be read as a number.
	// Age is nil in that case.
	RawAge string `json:"-"`
}

// UnmarshalJSON accepts age as a number, a numeric string, null or "".
// Any other age leaves Age nil and is kept in RawAge, so one odd record
// never fails a whole list. Fractional ages count completed years.
func (r *Record) UnmarshalJSON(b []byte) error {
	var wire struct {
		ID             ID              `json:"id"`
		Name           string          `json:"name"`
		Age            json.RawMessage `json:"age"`
		MedicalHistory *string         `json:"medical_history"`
		CreatedAt      *string         `json:"created_at"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	*r = Record{
		ID:             wire.ID,
		Name:           wire.Name,
		MedicalHistory: wire.MedicalHistory,
	}

	n, ok, err := readAge(wire.Age)
	switch {
	case err != nil:
		r.RawAge = string(bytes.TrimSpace(wire.Age))
	case ok:
		v := int(math.Floor(n))
		r.Age = &v
	}

	if wire.CreatedAt != nil && *wire.CreatedAt != "" {
		if t, ok := parseTimestamp(*wire.CreatedAt); ok {
			r.CreatedAt = &t
		}
	}
	return nil
}

// readAge parses a JSON age given as a number or a numeric string.
// ok is false for null, "" and a missing value.
func readAge(raw json.RawMessage) (n float64, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, fmt.Errorf("patient age: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
	}
	n, err = strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false, fmt.Errorf("patient age %q: not a number", s)
	}
	return n, true, nil
}

// some APIs emit naive ISO timestamps without a zone
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
