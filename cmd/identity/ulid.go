package identity

import (
	"time"

	"vidtube/cmd/identity/ids"
)

// NewULID mints a user ID. Stores call this once per CreateUser so IDs
// sort by creation time.
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
