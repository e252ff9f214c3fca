// Package patch turns sparse JSON payloads into validated column assignments.
//
// A Value records whether its key was present in the payload, whether it was
// an explicit null, and otherwise its raw JSON. Fields attach a column, a
// label used in error messages and the rule the value must satisfy. Resolved
// assignments are rendered into parameterized INSERT and UPDATE statements.
package patch

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"registrar/internal/apperr"
)

// Value is a tri-state payload field: absent, null or set.
type Value struct {
	Set  bool
	Null bool
	Raw  json.RawMessage
}

func (v *Value) UnmarshalJSON(data []byte) error {
	v.Set = true
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		v.Null = true
		v.Raw = nil
		return nil
	}
	v.Null = false
	v.Raw = append(v.Raw[:0], data...)
	return nil
}

type kind int

const (
	kindText kind = iota
	kindInteger
)

type Field struct {
	Column   string
	Label    string
	Value    Value
	kind     kind
	required bool
	min, max int
	checks   []func(string) error
}

func Text(column, label string, value Value) Field {
	return Field{Column: column, Label: label, Value: value, kind: kindText}
}

// Integer accepts JSON numbers, truncated toward zero, and numeric strings,
// read up to their first non-digit. The result must fall within [min, max].
func Integer(column, label string, value Value, min, max int) Field {
	return Field{Column: column, Label: label, Value: value, kind: kindInteger, min: min, max: max}
}

// Required marks a field that must be non-empty on create and cannot be cleared on update.
func (f Field) Required() Field {
	f.required = true
	return f
}

// Check adds a rule run against the trimmed, non-empty text of the field.
func (f Field) Check(fn func(string) error) Field {
	f.checks = append(f.checks, fn)
	return f
}

// Assignment sets Column to Value. A nil Value stores NULL.
type Assignment struct {
	Column string
	Value  any
}

// ResolveCreate validates every field for an insert. Absent optional fields are
// left out. A missing required field fails with requiredMessage.
func ResolveCreate(fields []Field, requiredMessage string) ([]Assignment, error) {
	for _, f := range fields {
		if !f.required {
			continue
		}
		if !f.Value.Set || f.Value.Null {
			return nil, apperr.Validation(requiredMessage)
		}
		text, err := f.text()
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, apperr.Validation(requiredMessage)
		}
	}

	var out []Assignment
	for _, f := range fields {
		if !f.Value.Set {
			continue
		}
		a, err := f.resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ResolveUpdate validates the fields present in the payload. Absent fields are
// skipped; null and "" clear the column.
func ResolveUpdate(fields []Field) ([]Assignment, error) {
	var out []Assignment
	for _, f := range fields {
		if !f.Value.Set {
			continue
		}
		a, err := f.resolve()
		if err != nil {
			return nil, err
		}
		if f.required && a.Value == nil {
			return nil, apperr.Validation(f.Label + " cannot be empty.")
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil, apperr.Validation("No valid fields provided for update.")
	}
	return out, nil
}

func (f Field) resolve() (Assignment, error) {
	a := Assignment{Column: f.Column}
	if f.Value.Null {
		return a, nil
	}
	switch f.kind {
	case kindInteger:
		n, ok, err := f.integer()
		if err != nil || !ok {
			return a, err
		}
		a.Value = n
	default:
		text, err := f.text()
		if err != nil {
			return a, err
		}
		if text == "" {
			return a, nil
		}
		for _, check := range f.checks {
			if err := check(text); err != nil {
				return a, err
			}
		}
		a.Value = text
	}
	return a, nil
}

// text returns the trimmed string form of a string or number literal.
func (f Field) text() (string, error) {
	if f.Value.Null || len(f.Value.Raw) == 0 {
		return "", nil
	}
	raw := f.Value.Raw
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", apperr.Validation(f.Label + " must be a string.")
		}
		return strings.TrimSpace(s), nil
	case isNumberLiteral(raw):
		return string(raw), nil
	default:
		return "", apperr.Validation(f.Label + " must be a string.")
	}
}

func (f Field) integer() (int, bool, error) {
	invalid := apperr.Validation(f.Label + " must be a valid number.")
	raw := f.Value.Raw
	var whole float64
	switch {
	case len(raw) == 0:
		return 0, false, nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, invalid
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		if !isFinite(s) {
			return 0, false, invalid
		}
		// Numeric strings keep only their leading decimal integer: "19.9" is 19, "1e2" is 1.
		prefix := integerPrefix(s)
		if prefix == "" {
			return 0, false, invalid
		}
		n, err := strconv.ParseFloat(prefix, 64)
		if err != nil {
			return 0, false, invalid
		}
		whole = n
	case isNumberLiteral(raw):
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || !isFinite(string(raw)) {
			return 0, false, invalid
		}
		whole = math.Trunc(n)
	default:
		return 0, false, invalid
	}

	if whole < float64(f.min) || whole > float64(f.max) {
		return 0, false, apperr.Validation(f.Label + " must be between " + strconv.Itoa(f.min) + " and " + strconv.Itoa(f.max) + ".")
	}
	return int(whole), true, nil
}

func isFinite(literal string) bool {
	n, err := strconv.ParseFloat(literal, 64)
	return err == nil && !math.IsNaN(n) && !math.IsInf(n, 0)
}

// integerPrefix returns the optional sign and the run of decimal digits that
// start s, or "" when s does not start with a digit.
func integerPrefix(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return ""
	}
	return s[:end]
}

func isNumberLiteral(raw []byte) bool {
	return raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')
}
