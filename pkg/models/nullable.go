package models

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// Nullable is an optional attribute decoded from provider JSON. A field that
// is absent, null, or not coercible to T is left invalid and stored as NULL.
type Nullable[T any] struct {
	sql.Null[T]
}

// Of returns a valid Nullable holding v.
func Of[T any](v T) Nullable[T] {
	return Nullable[T]{sql.Null[T]{V: v, Valid: true}}
}

// Get returns the value and whether it is set.
func (n Nullable[T]) Get() (T, bool) {
	return n.V, n.Valid
}

// OrElse returns the value, or def when unset.
func (n Nullable[T]) OrElse(def T) T {
	if !n.Valid {
		return def
	}
	return n.V
}

// SQL returns the database/sql representation.
func (n Nullable[T]) SQL() sql.Null[T] {
	return n.Null
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return jsonNull, nil
	}
	return json.Marshal(n.V)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	var zero T
	n.V, n.Valid = zero, false

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}

	if err := json.Unmarshal(data, &n.V); err == nil {
		n.Valid = true
		return nil
	}

	n.V = zero
	n.Valid = coerce(data, &n.V)
	return nil
}

// coerce handles the shapes the provider mixes up: numbers sent as strings,
// ids sent as numbers and integral floats.
func coerce[T any](data []byte, dst *T) bool {
	text := string(data)
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}

	switch p := any(dst).(type) {
	case *string:
		var num json.Number
		if err := json.Unmarshal(data, &num); err == nil {
			*p = num.String()
			return true
		}
		var b bool
		if err := json.Unmarshal(data, &b); err == nil {
			*p = strconv.FormatBool(b)
			return true
		}
	case *int64:
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			*p = v
			return true
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
			*p = int64(f)
			return true
		}
	case *float64:
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			*p = v
			return true
		}
	case *bool:
		if v, err := strconv.ParseBool(text); err == nil {
			*p = v
			return true
		}
	}
	return false
}

// NonBlank treats an empty or whitespace-only string as unset.
func NonBlank(n Nullable[string]) Nullable[string] {
	if !n.Valid || strings.TrimSpace(n.V) == "" {
		return Nullable[string]{}
	}
	return Of(strings.TrimSpace(n.V))
}

// FirstSet returns the first non-blank candidate.
func FirstSet(candidates ...Nullable[string]) Nullable[string] {
	for _, candidate := range candidates {
		if v := NonBlank(candidate); v.Valid {
			return v
		}
	}
	return Nullable[string]{}
}
