// Package schema holds the expectations about the migrated account data
// model: which fields an account record must and must not carry, how
// statuses are distributed, and which markers a rendered page may show.
package schema

import (
	"encoding/json"
	"fmt"
)

var (
	// RequiredFields must be present on every account record.
	RequiredFields = []string{"id", "name", "status", "created_at", "updated_at"}
	// DeprecatedFields were replaced by status and should be gone.
	DeprecatedFields = []string{"domain", "is_active", "admin_email"}
)

// UnknownStatus is tallied for records without a status.
const UnknownStatus = "unknown"

// Record is an account object exactly as the API returned it, so that the
// absence of a key can be told apart from a zero value.
type Record map[string]any

// Has reports whether the record carries field at all, even as null.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Display formats the value of field for console output.
func (r Record) Display(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		// encoding/json decodes every number as float64
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprint(val)
	}
}

// Status returns the status value, or UnknownStatus when it is missing or
// null.
func (r Record) Status() string {
	v, ok := r["status"]
	if !ok || v == nil {
		return UnknownStatus
	}
	if s, ok := v.(string); ok {
		return s
	}
	return r.Display("status")
}

// FieldState is the observation of one field on one record.
type FieldState struct {
	Name    string
	Present bool
	Value   string
}

// FieldCheck is the outcome of comparing a record with the field lists.
type FieldCheck struct {
	Required   []FieldState
	Deprecated []FieldState
}

// CheckFields inspects r against RequiredFields and DeprecatedFields.
func CheckFields(r Record) FieldCheck {
	return CheckFieldsAgainst(r, RequiredFields, DeprecatedFields)
}

// CheckFieldsAgainst inspects r against explicit field lists.
func CheckFieldsAgainst(r Record, required, deprecated []string) FieldCheck {
	var check FieldCheck
	for _, name := range required {
		check.Required = append(check.Required, FieldState{Name: name, Present: r.Has(name), Value: r.Display(name)})
	}
	for _, name := range deprecated {
		check.Deprecated = append(check.Deprecated, FieldState{Name: name, Present: r.Has(name), Value: r.Display(name)})
	}
	return check
}

// MissingRequired lists required fields the record lacks.
func (c FieldCheck) MissingRequired() []string {
	var out []string
	for _, f := range c.Required {
		if !f.Present {
			out = append(out, f.Name)
		}
	}
	return out
}

// PresentDeprecated lists deprecated fields the record still carries.
func (c FieldCheck) PresentDeprecated() []string {
	var out []string
	for _, f := range c.Deprecated {
		if f.Present {
			out = append(out, f.Name)
		}
	}
	return out
}
