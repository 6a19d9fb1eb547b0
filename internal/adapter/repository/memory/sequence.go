package memory

import (
	"strconv"
	"sync/atomic"
)

// SequenceGenerator hands out increasing numeric IDs, like the
// collaborator's auto-increment keys.
type SequenceGenerator struct {
	next atomic.Int64
}

// NewSequenceGenerator creates a generator whose first ID is start.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.next.Store(start)
	return g
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	return strconv.FormatInt(g.next.Add(1)-1, 10)
}
