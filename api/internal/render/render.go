// Package render draws a recognised formula as a PNG preview.
package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"regexp"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type Renderer interface {
	Render(formula string) ([]byte, error)
}

var ErrEmptyFormula = errors.New("render: empty formula")

// TextRenderer draws the formula with a bitmap font and scales the result
// up so it stays readable in chat previews.
type TextRenderer struct {
	Scale   uint
	Padding int
}

func NewTextRenderer() *TextRenderer { return &TextRenderer{Scale: 3, Padding: 8} }

func (r *TextRenderer) Render(formula string) ([]byte, error) {
	text := Plain(formula)
	if text == "" {
		return nil, ErrEmptyFormula
	}
	face := basicfont.Face7x13
	lines := strings.Split(text, "\n")

	width := 0
	for _, l := range lines {
		if w := font.MeasureString(face, l).Ceil(); w > width {
			width = w
		}
	}
	lineH := face.Metrics().Height.Ceil()
	w := width + 2*r.Padding
	h := lineH*len(lines) + 2*r.Padding

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(r.Padding, r.Padding+face.Metrics().Ascent.Ceil()+i*lineH)
		d.DrawString(l)
	}

	var out image.Image = img
	if r.Scale > 1 {
		out = resize.Resize(uint(w)*r.Scale, 0, img, resize.NearestNeighbor)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	reFrac  = regexp.MustCompile(`\\frac\{([^{}]*)\}\{([^{}]*)\}`)
	reSqrt  = regexp.MustCompile(`\\sqrt\{([^{}]*)\}`)
	reGroup = regexp.MustCompile(`([_^])\{([^{}]*)\}`)
	reSpace = regexp.MustCompile(`[ \t]+`)
)

var latexSymbols = strings.NewReplacer(
	`\left`, "", `\right`, "",
	`\cdot`, "*", `\times`, "x", `\div`, "/",
	`\pm`, "+-", `\leq`, "<=", `\geq`, ">=", `\neq`, "!=",
	`\le`, "<=", `\ge`, ">=",
	`\pi`, "pi", `\infty`, "inf",
	`\,`, " ", `\;`, " ", `\quad`, " ",
	`\\`, "\n",
)

// Plain turns common LaTeX constructs into ASCII the bitmap font can draw.
func Plain(formula string) string {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(formula), "$"))
	for i := 0; i < 4; i++ {
		next := reFrac.ReplaceAllString(s, "($1)/($2)")
		next = reSqrt.ReplaceAllString(next, "sqrt($1)")
		if next == s {
			break
		}
		s = next
	}
	s = reGroup.ReplaceAllString(s, "$1($2)")
	s = latexSymbols.Replace(s)
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(reSpace.ReplaceAllString(l, " ")); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
