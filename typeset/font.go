package typeset

import (
	"fmt"
	"math"
)

// Vertical metrics as fractions of the font size.
const (
	ascentRatio  = 0.8
	descentRatio = 0.2
	leadingRatio = 0.2
)

// Font is one usable family, style and size. It is immutable; its vertical
// metrics are derived from the size alone.
type Font struct {
	m      Measurer
	family string
	style  Style
	size   float64
}

// NewFont returns a font measured through m. size is in points and must be
// positive.
func NewFont(m Measurer, family string, style Style, size float64) (*Font, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil measurer", ErrInvalidArgument)
	}
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("%w: font size %v", ErrInvalidArgument, size)
	}
	return &Font{m: m, family: family, style: style, size: size}, nil
}

func (f *Font) Family() string { return f.family }
func (f *Font) Style() Style   { return f.style }
func (f *Font) Size() float64  { return f.size }

// Height equals the size.
func (f *Font) Height() float64  { return f.size }
func (f *Font) Ascent() float64  { return f.size * ascentRatio }
func (f *Font) Descent() float64 { return f.size * descentRatio }
func (f *Font) Leading() float64 { return f.size * leadingRatio }

// WidthOf returns the width of text in points. The font other callers see
// as active is the same before and after the call.
func (f *Font) WidthOf(text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	return f.m.MeasureWidth(f.family, f.style, f.size, text)
}

func (f *Font) String() string {
	return fmt.Sprintf("%s %s %gpt", f.family, f.style, f.size)
}
