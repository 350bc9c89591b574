package idgen

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Generator produces identifiers with a type prefix such as "user" or "op".
type Generator interface {
	New(prefix string) string
}

// UUID generates prefixed random identifiers.
type UUID struct{}

// New returns prefix_<32 hex chars>.
func (UUID) New(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Sequence generates deterministic identifiers for tests.
type Sequence struct {
	mu   sync.Mutex
	next map[string]int
}

// NewSequence creates a sequence generator starting at 1 for every prefix.
func NewSequence() *Sequence {
	return &Sequence{next: make(map[string]int)}
}

func (s *Sequence) New(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[prefix]++
	return fmt.Sprintf("%s_%04d", prefix, s.next[prefix])
}
