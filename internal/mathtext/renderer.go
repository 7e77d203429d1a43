package mathtext

import (
	"fmt"
	"html"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/texsketch/texsketch/backend-go/internal/textbox"
)

const displayScale = 1.2

// Renderer measures text with a TrueType font and renders math segments to
// markup. It is safe for concurrent use.
type Renderer struct {
	font *truetype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewRenderer uses the bundled Go Regular font.
func NewRenderer() (*Renderer, error) {
	return NewRendererFromTTF(goregular.TTF)
}

var (
	defaultOnce     sync.Once
	defaultRenderer *Renderer
)

// Default returns a shared renderer on the bundled font.
func Default() *Renderer {
	defaultOnce.Do(func() {
		r, err := NewRenderer()
		if err != nil {
			panic(err)
		}
		defaultRenderer = r
	})
	return defaultRenderer
}

// NewRendererFromFile loads a TrueType font from disk. An empty path falls
// back to the bundled font.
func NewRendererFromFile(path string) (*Renderer, error) {
	if path == "" {
		return NewRenderer()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return NewRendererFromTTF(data)
}

func NewRendererFromTTF(data []byte) (*Renderer, error) {
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{font: f, faces: make(map[float64]font.Face)}, nil
}

// Font exposes the parsed font for rasterizing.
func (r *Renderer) Font() *truetype.Font { return r.font }

// Face returns a cached face for size. Faces are not safe for concurrent
// use; callers outside this package must not share one across goroutines.
func (r *Renderer) Face(size float64) font.Face {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.faceLocked(size)
}

func (r *Renderer) faceLocked(size float64) font.Face {
	if f, ok := r.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	r.faces[size] = f
	return f
}

// Line is one visual line of laid-out text. Scale multiplies the font size.
type Line struct {
	Text  string
	Scale float64
}

// Layout splits raw text into the visual lines Measure sizes. Math is shown
// as plain text and display math sits on its own line. Malformed math is
// laid out as the raw source.
func Layout(raw string) []Line {
	segments := Parse(raw)
	if Check(segments) != nil {
		segments = []Segment{{Kind: Text, Content: raw}}
	}
	return layout(segments)
}

func layout(segments []Segment) []Line {
	lines := []Line{{Scale: 1}}
	for _, seg := range segments {
		switch seg.Kind {
		case Text:
			parts := strings.Split(seg.Content, "\n")
			for i, p := range parts {
				if i > 0 {
					lines = append(lines, Line{Scale: 1})
				}
				lines[len(lines)-1].Text += p
			}
		case InlineMath:
			lines[len(lines)-1].Text += Plain(seg.Content)
		case DisplayMath:
			if lines[len(lines)-1].Text != "" {
				lines = append(lines, Line{})
			}
			lines[len(lines)-1] = Line{Text: Plain(seg.Content), Scale: displayScale}
			lines = append(lines, Line{Scale: 1})
		}
	}
	if n := len(lines); n > 1 && lines[n-1].Text == "" {
		lines = lines[:n-1]
	}
	return lines
}

// Measure returns the laid-out extent of raw text at fontSize.
func (r *Renderer) Measure(raw string, fontSize float64) textbox.Size {
	if fontSize <= 0 {
		return textbox.Size{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var size textbox.Size
	for _, ln := range Layout(raw) {
		face := r.faceLocked(fontSize * ln.Scale)
		w := float64(font.MeasureString(face, ln.Text)) / 64
		h := float64(face.Metrics().Height) / 64
		size.Width = math.Max(size.Width, w)
		size.Height += h
	}
	return size
}

// Render produces markup for raw text. Malformed input yields an error
// marker wrapping the escaped source, never a panic.
func (r *Renderer) Render(raw string) (m textbox.Markup) {
	defer func() {
		if rec := recover(); rec != nil {
			m = errorMarkup(raw, fmt.Sprint(rec))
		}
	}()

	segments := Parse(raw)
	if err := Check(segments); err != nil {
		return errorMarkup(raw, err.Error())
	}

	var b strings.Builder
	for _, seg := range segments {
		switch seg.Kind {
		case Text:
			b.WriteString(`<span class="text-segment">`)
			b.WriteString(strings.ReplaceAll(html.EscapeString(seg.Content), "\n", "<br>"))
			b.WriteString(`</span>`)
		case InlineMath:
			fmt.Fprintf(&b, `<span class="math" data-tex="%s">%s</span>`,
				html.EscapeString(seg.Content), html.EscapeString(Plain(seg.Content)))
		case DisplayMath:
			fmt.Fprintf(&b, `<div class="math math-display" data-tex="%s">%s</div>`,
				html.EscapeString(seg.Content), html.EscapeString(Plain(seg.Content)))
		}
	}
	return textbox.Markup{HTML: b.String()}
}

func errorMarkup(raw, reason string) textbox.Markup {
	return textbox.Markup{
		HTML: fmt.Sprintf(`<span class="math-error" title="%s">%s</span>`,
			html.EscapeString(reason), html.EscapeString(raw)),
		Error: reason,
	}
}
