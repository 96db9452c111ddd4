// Package refcode generates the short public references printed on tickets.
package refcode

import (
	"strings"

	"github.com/google/uuid"
)

// Length of a ticket reference. Eight hex characters give 2^32 values; the
// store's unique constraint catches the rare collision.
const Length = 8

// New returns a fresh reference taken from a random (v4) UUID.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:Length]
}
