package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same run id every time.
//
// Reports carry a run id; fixing it makes rendered reports byte-identical
// across runs for golden file comparison.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id.
// If id is empty, NewID() returns "run-fixed".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "run-fixed"
	}
	return &FixedIDGenerator{id: id}
}

// NewID returns the fixed run id.
func (g *FixedIDGenerator) NewID() string {
	return g.id
}

// SequenceIDGenerator returns prefix-1, prefix-2, ... so that every run of
// a test gets a distinct, predictable id.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator counting from 1.
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (g *SequenceIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
