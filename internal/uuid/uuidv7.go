// Package uuid generates and checks the identifiers of persisted records.
package uuid

import (
	"errors"

	googleuuid "github.com/google/uuid"
)

// canonicalLen is the length of the hyphenated 8-4-4-4-12 form.
const canonicalLen = 36

var errNotCanonical = errors.New("uuid must be in canonical 8-4-4-4-12 form")

// New returns a time-ordered UUIDv7 string. A random v4 id is returned if
// the clock sequence cannot be generated.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		return googleuuid.NewString()
	}
	return id.String()
}

// Parse accepts only the canonical hyphenated form and returns it lowercased.
// Braced and urn: forms are rejected so one record has one path.
func Parse(s string) (string, error) {
	if len(s) != canonicalLen {
		return "", errNotCanonical
	}
	parsed, err := googleuuid.Parse(s)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}
