// Package mathtext parses text with embedded TeX math and implements the
// text box renderer on top of real font metrics.
package mathtext

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Kind int

const (
	Text Kind = iota
	InlineMath
	DisplayMath
)

func (k Kind) String() string {
	switch k {
	case InlineMath:
		return "inline"
	case DisplayMath:
		return "display"
	default:
		return "text"
	}
}

// Segment is a run of plain text or one math expression. Content holds the
// TeX source without delimiters for math segments.
type Segment struct {
	Kind    Kind
	Content string
}

var (
	ErrUnterminatedMath = errors.New("unterminated math delimiter")
	ErrUnbalancedBraces = errors.New("unbalanced braces")
	ErrUnbalancedLeft   = errors.New(`unbalanced \left / \right`)
)

// $$display$$, $inline$ (backslash escapes allowed inside), or an escaped \$.
var segmentPattern = regexp.MustCompile(`\$\$([\s\S]+?)\$\$|\$([^$\\]*(?:\\.[^$\\]*)*)\$|\\\$`)

// Parse splits s into text and math segments. Adjacent text runs are merged,
// an escaped \$ becomes a literal dollar, and empty math ($ $) stays text.
func Parse(s string) []Segment {
	var out []Segment
	appendText := func(t string) {
		if t == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Kind == Text {
			out[n-1].Content += t
			return
		}
		out = append(out, Segment{Kind: Text, Content: t})
	}

	last := 0
	for _, m := range segmentPattern.FindAllStringSubmatchIndex(s, -1) {
		appendText(s[last:m[0]])
		match := s[m[0]:m[1]]
		switch {
		case match == `\$`:
			appendText("$")
		case m[2] >= 0:
			if inner := strings.TrimSpace(s[m[2]:m[3]]); inner != "" {
				out = append(out, Segment{Kind: DisplayMath, Content: inner})
			} else {
				appendText(match)
			}
		default:
			if inner := strings.TrimSpace(s[m[4]:m[5]]); inner != "" {
				out = append(out, Segment{Kind: InlineMath, Content: inner})
			} else {
				appendText(match)
			}
		}
		last = m[1]
	}
	appendText(s[last:])
	if len(out) == 0 {
		out = append(out, Segment{Kind: Text})
	}
	return out
}

// Check reports the first problem that would stop segments from rendering:
// a dangling $ in a text run or malformed TeX inside a math run.
func Check(segments []Segment) error {
	for _, seg := range segments {
		if seg.Kind == Text {
			if strings.Contains(seg.Content, "$") {
				return ErrUnterminatedMath
			}
			continue
		}
		if err := checkTeX(seg.Content); err != nil {
			return fmt.Errorf("%s math %q: %w", seg.Kind, seg.Content, err)
		}
	}
	return nil
}

func checkTeX(tex string) error {
	depth, lefts := 0, 0
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			rest := tex[i+1:]
			switch {
			case strings.HasPrefix(rest, "left") && !isLetterAt(rest, 4):
				lefts++
			case strings.HasPrefix(rest, "right") && !isLetterAt(rest, 5):
				lefts--
				if lefts < 0 {
					return ErrUnbalancedLeft
				}
			}
			// Skip the escaped character so \{ and \} do not count.
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return ErrUnbalancedBraces
			}
		}
	}
	if depth != 0 {
		return ErrUnbalancedBraces
	}
	if lefts != 0 {
		return ErrUnbalancedLeft
	}
	return nil
}

func isLetterAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	c := s[i]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

var symbols = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ε",
	"theta": "θ", "lambda": "λ", "mu": "μ", "pi": "π", "sigma": "σ",
	"phi": "φ", "omega": "ω", "Delta": "Δ", "Sigma": "Σ", "Omega": "Ω",
	"cdot": "·", "times": "×", "pm": "±", "leq": "≤", "geq": "≥",
	"neq": "≠", "approx": "≈", "infty": "∞", "sum": "∑", "int": "∫",
	"sqrt": "√", "to": "→", "rightarrow": "→", "partial": "∂", "nabla": "∇",
	"left": "", "right": "", "frac": "",
}

// Plain approximates how a TeX expression reads once typeset, for measuring
// and for the fallback markup.
func Plain(tex string) string {
	var b strings.Builder
	for i := 0; i < len(tex); i++ {
		c := tex[i]
		switch c {
		case '{', '}':
			continue
		case '\\':
			j := i + 1
			for j < len(tex) && isLetterAt(tex, j) {
				j++
			}
			if j == i+1 {
				if j < len(tex) {
					b.WriteByte(tex[j])
					i = j
				}
				continue
			}
			name := tex[i+1 : j]
			if sym, ok := symbols[name]; ok {
				b.WriteString(sym)
			} else {
				b.WriteString(name)
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
