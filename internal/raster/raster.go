// Package raster draws canvas snapshots to bitmap images.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/texsketch/texsketch/backend-go/internal/document"
	"github.com/texsketch/texsketch/backend-go/internal/mathtext"
)

var ErrEmptyScene = errors.New("scene has no size")

type Options struct {
	// Scale is pixels per canvas unit.
	Scale      float64
	DrawNodes  bool
	NodeRadius float64
}

func DefaultOptions() Options {
	return Options{Scale: 1, NodeRadius: 3}
}

// Render draws doc onto an image the size of its scene: edges first, then
// nodes when asked for, then text boxes with their rotation and mirroring.
func Render(doc *document.Document, r *mathtext.Renderer, opts Options) (image.Image, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	w := int(math.Ceil(float64(doc.Scene.Width) * opts.Scale))
	h := int(math.Ceil(float64(doc.Scene.Height) * opts.Scale))
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyScene
	}

	dc := gg.NewContext(w, h)
	bg := doc.Scene.Background
	if bg == "" {
		bg = "#ffffff"
	}
	dc.SetHexColor(bg)
	dc.Clear()
	dc.Scale(opts.Scale, opts.Scale)

	pos := make(map[string][2]float64, len(doc.Nodes))
	for _, n := range doc.Nodes {
		pos[n.ID] = [2]float64{n.X, n.Y}
	}

	dc.SetLineCapRound()
	for _, e := range doc.Edges {
		a, ok1 := pos[e.Node1ID]
		b, ok2 := pos[e.Node2ID]
		if !ok1 || !ok2 {
			continue
		}
		dc.SetHexColor(e.Color)
		dc.SetLineWidth(e.LineWidth)
		dc.DrawLine(a[0], a[1], b[0], b[1])
		dc.Stroke()
	}

	if opts.DrawNodes {
		dc.SetHexColor(doc.Style.Color)
		for _, p := range pos {
			dc.DrawCircle(p[0], p[1], opts.NodeRadius)
			dc.Fill()
		}
	}

	for _, t := range doc.Texts {
		drawText(dc, r.Font(), t)
	}
	return dc.Image(), nil
}

func drawText(dc *gg.Context, f *truetype.Font, t document.TextBox) {
	if t.Width <= 0 || t.Height <= 0 {
		return
	}
	c := t.Center()
	dc.Push()
	defer dc.Pop()
	dc.RotateAbout(t.Rotation, c.X, c.Y)
	fx, fy := 1.0, 1.0
	if t.FlipX {
		fx = -1
	}
	if t.FlipY {
		fy = -1
	}
	if fx != 1 || fy != 1 {
		dc.ScaleAbout(fx, fy, c.X, c.Y)
	}

	dc.SetHexColor(t.Color)
	y := t.Y
	for _, ln := range mathtext.Layout(t.Text) {
		// Faces carry glyph caches and are not shared across goroutines.
		face := truetype.NewFace(f, &truetype.Options{
			Size:    t.FontSize * ln.Scale,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		dc.SetFontFace(face)
		lh := float64(face.Metrics().Height) / 64
		dc.DrawStringAnchored(ln.Text, c.X, y+lh/2, 0.5, 0.5)
		y += lh
	}
}

// EncodePNG renders doc and writes it as a PNG.
func EncodePNG(w io.Writer, doc *document.Document, r *mathtext.Renderer, opts Options) error {
	img, err := Render(doc, r, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
