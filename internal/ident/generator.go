package ident

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// Generator produces fresh identities.
// Implemented by UUIDv7Generator (production) and SequentialGenerator (tests).
type Generator interface {
	Generate() ID
}

// UUIDv7Generator generates time-sortable UUIDv7 identities.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 identity.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() ID {
	return ID(uuid.Must(uuid.NewV7()))
}

// SequentialGenerator returns identities whose low 8 bytes count up from 1.
//
// This enables deterministic test execution and golden journal comparison:
// the Nth identity generated is always 00000000-0000-0000-0000-00000000000N.
//
// Thread-safety: SequentialGenerator is safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu   sync.Mutex
	next uint64
}

// NewSequentialGenerator creates a generator whose first identity is ...0001.
func NewSequentialGenerator() *SequentialGenerator {
	return &SequentialGenerator{next: 1}
}

// Generate returns the next identity in sequence.
func (g *SequentialGenerator) Generate() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	var id ID
	binary.BigEndian.PutUint64(id[8:], g.next)
	g.next++
	return id
}

// Seq returns the identity the sequential generator hands out as its nth value.
// Lets tests name identities without running a generator.
func Seq(n uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}
