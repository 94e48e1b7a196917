// Package idgen hands out sortable identifiers for runs and approval requests
package idgen

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces monotonic ULIDs; safe for concurrent use
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// New creates a generator backed by crypto/rand
func New() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID generates a new ID using ULID
// Format: ULID (e.g., 01JB6X8Y2K9FQR4T3VWHGP5M2C)
func (g *Generator) NewID(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), g.entropy).String()
}

var std = New()

// NewID generates an ID from the package generator
func NewID(at time.Time) string {
	return std.NewID(at)
}
