package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID generates a random unique identifier for proposals, runs and other
// long-lived handles.
func NewID() string {
	return uuid.NewString()
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewActionID generates a lexicographically sortable identifier for action
// records. Sorting action ids therefore tracks append order, which is what
// per-recipient delivery order is defined by.
func NewActionID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
