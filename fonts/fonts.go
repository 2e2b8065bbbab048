// Package fonts parses TrueType fonts and answers the metric questions a
// document backend asks: glyph lookup, advance widths, vertical metrics and
// the descriptor needed to embed the font.
package fonts

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/wudi/pdfkern/ir/semantic"
)

var (
	ErrEmptyFont = errors.New("font data is empty")
	// ErrCFFOutlines is returned for OpenType fonts with PostScript outlines;
	// only glyf-based fonts can be embedded as FontFile2.
	ErrCFFOutlines = errors.New("CFF outlines are not supported")
)

// Glyph is one glyph of a mapped string.
type Glyph struct {
	ID      int
	Runes   []rune
	Advance int // 1/1000 em
}

// Font is a parsed TrueType font. It is safe for concurrent use.
type Font struct {
	name       string
	data       []byte
	sf         *sfnt.Font
	unitsPerEm sfnt.Units
	ppem       fixed.Int26_6
	descriptor semantic.FontDescriptor

	mu  sync.Mutex
	buf sfnt.Buffer

	shapeOnce sync.Once
	shaper    *shaper
	shapeErr  error
}

// LoadTrueType parses a TrueType font. name is used as the PostScript name
// when the font has none.
func LoadTrueType(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFont
	}
	tables, err := ParseTableDirectory(data)
	if err != nil {
		return nil, fmt.Errorf("parse table directory: %w", err)
	}
	if _, ok := tables["CFF "]; ok {
		return nil, ErrCFFOutlines
	}
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	upem := sf.UnitsPerEm()
	if upem == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}
	f := &Font{
		data:       data,
		sf:         sf,
		unitsPerEm: upem,
		ppem:       fixed.Int26_6(upem << 6),
	}

	baseName := strings.TrimSpace(name)
	if ps, _ := sf.Name(&f.buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}
	f.name = strings.ReplaceAll(baseName, " ", "")

	metrics, _ := sf.Metrics(&f.buf, f.ppem, xfont.HintingNone)
	bounds, _ := sf.Bounds(&f.buf, f.ppem, xfont.HintingNone)
	capHeight := metrics.CapHeight
	if capHeight == 0 {
		capHeight = metrics.Ascent
	}
	flags := 32 // nonsymbolic
	angle := 0.0
	if post := sf.PostTable(); post != nil {
		angle = post.ItalicAngle
		if post.IsFixedPitch {
			flags |= 1
		}
	}
	if angle != 0 {
		flags |= 64
	}
	// sfnt reports y growing downwards; PDF wants it growing upwards.
	f.descriptor = semantic.FontDescriptor{
		FontName:    f.name,
		Flags:       flags,
		ItalicAngle: angle,
		Ascent:      f.scale(metrics.Ascent),
		Descent:     -f.scale(metrics.Descent),
		CapHeight:   f.scale(capHeight),
		StemV:       80,
		FontBBox: [4]float64{
			f.scale(bounds.Min.X),
			-f.scale(bounds.Max.Y),
			f.scale(bounds.Max.X),
			-f.scale(bounds.Min.Y),
		},
		FontFileType: "FontFile2",
	}
	return f, nil
}

// Name returns the PostScript name without spaces.
func (f *Font) Name() string { return f.name }

// Data returns the font file bytes.
func (f *Font) Data() []byte { return f.data }

// UnitsPerEm returns the design grid of the font.
func (f *Font) UnitsPerEm() int { return int(f.unitsPerEm) }

// NumGlyphs returns the number of glyphs in the font.
func (f *Font) NumGlyphs() int { return f.sf.NumGlyphs() }

// Ascent is the typographic ascent in 1/1000 em.
func (f *Font) Ascent() float64 { return f.descriptor.Ascent }

// Descent is the typographic descent in 1/1000 em; it is negative.
func (f *Font) Descent() float64 { return f.descriptor.Descent }

// Descriptor returns a copy of the font descriptor with the font file attached.
func (f *Font) Descriptor() *semantic.FontDescriptor {
	d := f.descriptor
	d.FontFile = f.data
	return &d
}

// GlyphIndex maps r to a glyph ID. Missing runes map to 0 (.notdef).
func (f *Font) GlyphIndex(r rune) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.glyphIndex(r)
}

func (f *Font) glyphIndex(r rune) (int, bool) {
	gid, err := f.sf.GlyphIndex(&f.buf, r)
	if err != nil || gid == 0 {
		return 0, false
	}
	return int(gid), true
}

// GlyphAdvance returns the advance width of gid in 1/1000 em.
func (f *Font) GlyphAdvance(gid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.glyphAdvance(gid)
}

func (f *Font) glyphAdvance(gid int) int {
	adv, err := f.sf.GlyphAdvance(&f.buf, sfnt.GlyphIndex(gid), f.ppem, xfont.HintingNone)
	if err != nil {
		return 0
	}
	return int(math.Round(f.scale(adv)))
}

// Glyphs maps text, after NFC normalization, to one glyph per rune.
func (f *Font) Glyphs(text string) []Glyph {
	text = norm.NFC.String(text)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Glyph, 0, len(text))
	for _, r := range text {
		gid, _ := f.glyphIndex(r)
		out = append(out, Glyph{ID: gid, Runes: []rune{r}, Advance: f.glyphAdvance(gid)})
	}
	return out
}

// Advance returns the width of text in 1/1000 em using the advance widths
// of the mapped glyphs. No kerning is applied.
func (f *Font) Advance(text string) float64 {
	total := 0
	for _, g := range f.Glyphs(text) {
		total += g.Advance
	}
	return float64(total)
}

// Semantic builds the Type0 font the writer embeds. used maps the glyph IDs
// that appear in content streams to the runes they represent; only those
// glyphs get W and ToUnicode entries.
func (f *Font) Semantic(used map[int][]rune) *semantic.Font {
	widths := make(map[int]int, len(used))
	toUnicode := make(map[int][]rune, len(used))
	f.mu.Lock()
	for gid, runes := range used {
		widths[gid] = f.glyphAdvance(gid)
		if gid != 0 && len(runes) > 0 {
			toUnicode[gid] = runes
		}
	}
	f.mu.Unlock()

	desc := f.Descriptor()
	cidInfo := semantic.CIDSystemInfo{Registry: "Adobe", Ordering: "Identity"}
	return &semantic.Font{
		Subtype:       "Type0",
		BaseFont:      f.name,
		Encoding:      "Identity-H",
		Widths:        widths,
		ToUnicode:     toUnicode,
		CIDSystemInfo: &cidInfo,
		DescendantFont: &semantic.CIDFont{
			Subtype:       "CIDFontType2",
			BaseFont:      f.name,
			CIDSystemInfo: cidInfo,
			DW:            1000,
			W:             widths,
			Descriptor:    desc,
		},
		Descriptor: desc,
	}
}

func (f *Font) scale(val fixed.Int26_6) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(f.unitsPerEm))
}
