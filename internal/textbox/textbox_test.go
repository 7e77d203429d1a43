package textbox

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texsketch/texsketch/backend-go/internal/geometry"
)

// fixedRenderer measures half an em per byte and one em per line.
type fixedRenderer struct{}

func (fixedRenderer) Measure(raw string, fontSize float64) Size {
	return Size{Width: float64(len(raw)) * fontSize / 2, Height: fontSize}
}

func (fixedRenderer) Render(raw string) Markup {
	if strings.Count(raw, "$")%2 == 1 {
		return Markup{HTML: `<span class="error">` + raw + `</span>`, Error: "unbalanced"}
	}
	return Markup{HTML: raw}
}

func newBox(text string) *Box {
	return New("t1", text, geometry.Point{X: 100, Y: 50}, "#000", 16, fixedRenderer{}, DefaultLimits())
}

func TestNewCentersMeasuredBox(t *testing.T) {
	b := newBox("abcd")
	assert.Equal(t, Size{Width: 32, Height: 16}, b.Size())
	assert.Equal(t, 84.0, b.Data().X)
	assert.Equal(t, 42.0, b.Data().Y)
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, b.Center())
}

func TestEmptyTextMinimumSize(t *testing.T) {
	b := newBox("")
	assert.Equal(t, 10.0, b.Size().Width)
	assert.Equal(t, 16.0, b.Size().Height)
}

func TestSetTextKeepsCenter(t *testing.T) {
	b := newBox("ab")
	require.True(t, b.SetText("abcdefgh"))
	assert.Equal(t, 64.0, b.Size().Width)
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, b.Center())
	assert.False(t, b.SetText("abcdefgh"))
}

func TestSetStyleClampsAndKeepsCenter(t *testing.T) {
	b := newBox("ab")
	require.True(t, b.SetStyle("", 1000))
	assert.Equal(t, DefaultMaxFontSize, b.FontSize())
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, b.Center())

	require.True(t, b.SetStyle("#f00", 0))
	assert.Equal(t, "#f00", b.Color())
	assert.Equal(t, DefaultMaxFontSize, b.FontSize())
	assert.False(t, b.SetStyle("#f00", DefaultMaxFontSize))
}

func TestEditModeRoundTrip(t *testing.T) {
	b := newBox("x")
	b.SetRotation(0.5)
	b.EnterEditMode()
	assert.Equal(t, geometry.Identity(), b.Matrix(), "edit mode draws untransformed")

	b.SetText("x + y")
	res := b.ExitEditMode()
	assert.True(t, res.TextChanged)
	assert.Equal(t, "x", res.Before)
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, b.Center())
	assert.NotEqual(t, geometry.Identity(), b.Matrix())

	b.EnterEditMode()
	assert.False(t, b.ExitEditMode().TextChanged)
}

func TestMalformedMathIsFlaggedNotFatal(t *testing.T) {
	b := newBox("cost $x")
	assert.NotEmpty(t, b.Markup().Error)
	assert.Contains(t, b.Markup().HTML, "error")
}

func TestApplyScaleUsesBasis(t *testing.T) {
	b := newBox("abcd")
	b.ApplyScale(2, 2, true)
	b.ApplyScale(3, 3, false)
	assert.Equal(t, 48.0, b.FontSize(), "scale comes from the basis, not the previous step")
	assert.Equal(t, Size{Width: 96, Height: 48}, b.Size())
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, b.Center())

	b.FinalizeScale()
	assert.Equal(t, 48.0, b.FontSize())
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, b.Center())
}

func TestApplyScaleClampsFont(t *testing.T) {
	b := newBox("ab")
	b.ApplyScale(100, 100, true)
	assert.Equal(t, DefaultMaxFontSize, b.FontSize())
	b.ApplyScale(0.001, 0.001, false)
	assert.Equal(t, DefaultMinFontSize, b.FontSize())
}

func TestNegativeScaleMirrors(t *testing.T) {
	b := newBox("abcd")
	before, ok := b.RotatedCorners()
	require.True(t, ok)

	b.ApplyScale(-1, 1, true)
	assert.Equal(t, Size{Width: 32, Height: 16}, b.Size(), "logical size stays non-negative")
	mirrored, ok := b.RotatedCorners()
	require.True(t, ok)
	assert.InDelta(t, before.TR.X, mirrored.TL.X, 1e-9)
	assert.InDelta(t, before.TL.X, mirrored.TR.X, 1e-9)

	b.FinalizeScale()
	assert.True(t, b.Data().FlipX)
}

func TestRotatedCorners(t *testing.T) {
	b := newBox("abcd")
	b.SetRotation(math.Pi / 2)
	c, ok := b.RotatedCorners()
	require.True(t, ok)
	// top-left (84,42) rotates a quarter turn about (100,50).
	assert.InDelta(t, 108, c.TL.X, 1e-9)
	assert.InDelta(t, 34, c.TL.Y, 1e-9)
	assert.Equal(t, geometry.Point{X: 100, Y: 50}, c.Center)

	degenerate := FromData(Data{ID: "z"}, fixedRenderer{}, DefaultLimits())
	_, ok = degenerate.RotatedCorners()
	assert.False(t, ok)
}

func TestContainsRespectsRotation(t *testing.T) {
	b := newBox("abcd") // 32 x 16 around (100,50)
	assert.True(t, b.Contains(geometry.Point{X: 114, Y: 50}))
	assert.False(t, b.Contains(geometry.Point{X: 100, Y: 64}))

	b.SetRotation(math.Pi / 2)
	assert.False(t, b.Contains(geometry.Point{X: 114, Y: 50}))
	assert.True(t, b.Contains(geometry.Point{X: 100, Y: 64}))

	b.EnterEditMode()
	assert.True(t, b.Contains(geometry.Point{X: 114, Y: 50}), "an edited box hits where it is drawn")
	b.ExitEditMode()

	b.SetRotation(0)
	b.ApplyScale(-1, 1, true)
	b.FinalizeScale()
	assert.True(t, b.Contains(geometry.Point{X: 114, Y: 50}), "mirroring keeps the footprint")
}

func TestRegistryOrderAndHit(t *testing.T) {
	r := NewRegistry(fixedRenderer{}, DefaultLimits())
	r.Create("a", "abcd", geometry.Point{X: 0, Y: 0}, "#000", 16)
	r.Create("b", "abcd", geometry.Point{X: 4, Y: 0}, "#000", 16)

	hit, ok := r.At(geometry.Point{X: 2, Y: 0})
	require.True(t, ok)
	assert.Equal(t, "b", hit.ID(), "newest box is on top")

	d, ok := r.Remove("b")
	require.True(t, ok)
	hit, _ = r.At(geometry.Point{X: 2, Y: 0})
	assert.Equal(t, "a", hit.ID())

	r.Put(d)
	assert.Equal(t, 2, r.Len())
	got, _ := r.Get("b")
	assert.Equal(t, d, got.Data())
}
