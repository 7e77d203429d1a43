package textbox

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
)

// Registry owns the text boxes of a canvas in creation order; later boxes
// draw on top.
type Registry struct {
	boxes    *orderedmap.OrderedMap[string, *Box]
	renderer Renderer
	limits   Limits
}

func NewRegistry(r Renderer, limits Limits) *Registry {
	return &Registry{
		boxes:    orderedmap.New[string, *Box](),
		renderer: r,
		limits:   limits,
	}
}

// Create adds a new box centered on center.
func (r *Registry) Create(id, text string, center geometry.Point, color string, fontSize float64) *Box {
	b := New(id, text, center, color, fontSize, r.renderer, r.limits)
	r.boxes.Set(id, b)
	return b
}

// Put inserts or overwrites a box from a snapshot.
func (r *Registry) Put(d Data) *Box {
	if b, ok := r.boxes.Get(d.ID); ok {
		b.Restore(d)
		return b
	}
	b := FromData(d, r.renderer, r.limits)
	r.boxes.Set(d.ID, b)
	return b
}

func (r *Registry) Get(id string) (*Box, bool) {
	return r.boxes.Get(id)
}

// Remove deletes a box and returns its last snapshot.
func (r *Registry) Remove(id string) (Data, bool) {
	b, ok := r.boxes.Delete(id)
	if !ok {
		return Data{}, false
	}
	return b.Data(), true
}

func (r *Registry) Len() int { return r.boxes.Len() }

// All returns the boxes bottom to top.
func (r *Registry) All() []*Box {
	out := make([]*Box, 0, r.boxes.Len())
	for pair := r.boxes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// At returns the topmost box containing p.
func (r *Registry) At(p geometry.Point) (*Box, bool) {
	for pair := r.boxes.Newest(); pair != nil; pair = pair.Prev() {
		if pair.Value.Contains(p) {
			return pair.Value, true
		}
	}
	return nil, false
}

// Limits returns the font size bounds boxes are created with.
func (r *Registry) Limits() Limits { return r.limits }
