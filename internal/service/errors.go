package service

import (
	"errors"
	"sort"
	"strings"
)

// Errors shared across services. Handlers translate these into HTTP status
// codes with errors.Is chains; nothing below ever carries internal detail
// to the caller.
var (
	// ErrStorageUnavailable marks a transient backing-store failure. The
	// request failed atomically and is safe to retry.
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")
)

// FieldErrors collects per-field validation messages. It satisfies error so
// services can return it directly; handlers render the map as the 400 body.
type FieldErrors map[string][]string

// Add appends a message for the named field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// HasErrors reports whether any field failed validation.
func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(strings.Join(fe[f], ", "))
	}
	return b.String()
}

// AsFieldErrors unwraps err into FieldErrors if it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
