// Package ids mints the identifiers used for user records.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a 26-character ULID with millisecond precision from now.
// A zero now falls back to the wall clock, so callers can pass a fixed
// timestamp in tests without special-casing production.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
