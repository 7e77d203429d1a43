package typeid

import (
	"fmt"
	"strconv"
	"sync"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixNode = "node"
	PrefixEdge = "edge"
	PrefixText = "text"
	PrefixRoom = "room"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewNodeID() string { return New(PrefixNode) }
func NewEdgeID() string { return New(PrefixEdge) }
func NewTextID() string { return New(PrefixText) }
func NewRoomID() string { return New(PrefixRoom) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// Source hands out ids for the editor's registries.
type Source interface {
	NewID(prefix string) string
}

// Random generates typeids. It is the default source.
type Random struct{}

func (Random) NewID(prefix string) string { return New(prefix) }

// Sequence generates "prefix_N" ids from a shared counter, for reproducible
// scenes in tests and sample documents.
type Sequence struct {
	mu   sync.Mutex
	next int
}

func (s *Sequence) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return prefix + "_" + strconv.Itoa(s.next)
}
