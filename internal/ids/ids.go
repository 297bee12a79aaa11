// Package ids generates the opaque string identifiers used as primary
// keys across every table (the objectid column).
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh lexicographically sortable identifier. Identifiers
// never collide across calls; rows are keyed by these, not by database
// sequences.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
