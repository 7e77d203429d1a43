package document

import (
	"fmt"
	"math"

	"github.com/texsketch/texsketch/backend-go/internal/graph"
	"github.com/texsketch/texsketch/backend-go/internal/textbox"
	"github.com/texsketch/texsketch/backend-go/internal/typeid"
)

// NewSampleDocument builds a small diagram: a triangle, a polyline and two
// labels, one with inline and one with display math.
func NewSampleDocument(ids typeid.Source) *Document {
	if ids == nil {
		ids = typeid.Random{}
	}
	style := Style{Color: "#000000", LineWidth: 2, FontSize: 16}
	doc := NewEmptyDocument(style)

	node := func(x, y float64) string {
		id := ids.NewID(typeid.PrefixNode)
		doc.Nodes = append(doc.Nodes, graph.Node{ID: id, X: x, Y: y})
		return id
	}
	edge := func(a, b, color string) {
		doc.Edges = append(doc.Edges, graph.Edge{
			ID:        ids.NewID(typeid.PrefixEdge),
			Node1ID:   a,
			Node2ID:   b,
			Color:     color,
			LineWidth: style.LineWidth,
		})
	}

	// Triangle
	var tri []string
	for i := range 3 {
		a := -math.Pi/2 + float64(i)*2*math.Pi/3
		tri = append(tri, node(300+80*math.Cos(a), 260+80*math.Sin(a)))
	}
	for i := range tri {
		edge(tri[i], tri[(i+1)%len(tri)], "#1f77b4")
	}

	// Zigzag
	prev := node(520, 300)
	for i := 1; i <= 4; i++ {
		next := node(520+float64(i)*50, 300-float64(i%2)*60)
		edge(prev, next, "#d62728")
		prev = next
	}

	// Labels are left unmeasured; loading measures them around (x, y).
	label := func(text string, x, y, fontSize float64) {
		doc.Texts = append(doc.Texts, TextBox{
			Data: textbox.Data{
				ID:       ids.NewID(typeid.PrefixText),
				Text:     text,
				X:        x,
				Y:        y,
				Color:    style.Color,
				FontSize: fontSize,
			},
		})
	}
	label(fmt.Sprintf("Area $A = %s$", `\frac{\sqrt{3}}{4}a^2`), 220, 380, 18)
	label(`$$\sum_{k=1}^{n} k = \frac{n(n+1)}{2}$$`, 520, 380, 16)

	return doc
}
