package ids

import (
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ClaimPrefix is the fixed literal in front of every claim code.
const ClaimPrefix = "CLM"

// ClaimCode renders a claim sequence number as a short human-readable code (CLM001).
func ClaimCode(seq uint64) string {
	return fmt.Sprintf("%s%03d", ClaimPrefix, seq)
}
