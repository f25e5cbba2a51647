// Package contacts holds the contact list state: the Contact record, the
// immutable List snapshot with its transitions, and the Store that owns the
// current snapshot.
package contacts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIndexOutOfRange = errors.New("contact index out of range")
	ErrUnknownField    = errors.New("unknown contact field")
)

// Contact is a name/number pair. It has no identity beyond its position in a
// List, and empty values are allowed.
type Contact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Field names one editable attribute of a Contact.
type Field string

const (
	FieldName   Field = "name"
	FieldNumber Field = "number"
)

// ParseField accepts "name" or "number" (case-insensitive, surrounding
// whitespace ignored).
func ParseField(raw string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(raw))); f {
	case FieldName, FieldNumber:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q (must be one of: name, number)", ErrUnknownField, raw)
	}
}

// With returns a copy of c with field set to value.
func (c Contact) With(field Field, value string) (Contact, error) {
	switch field {
	case FieldName:
		c.Name = value
	case FieldNumber:
		c.Number = value
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	return c, nil
}
