// Package builder is a stateful document generator in the FPDF mould: a
// user unit, a list of pages, a registry of TrueType fonts keyed by family
// and style, and one active font that string measurement and text
// placement use. Documents are not safe for concurrent use.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/wudi/pdfkern/fonts"
	"github.com/wudi/pdfkern/ir/semantic"
	"github.com/wudi/pdfkern/observability"
	"github.com/wudi/pdfkern/writer"
)

var (
	ErrNoPage       = errors.New("no page added")
	ErrNoFont       = errors.New("no font selected")
	ErrUnknownFont  = errors.New("font not registered")
	ErrInvalidStyle = errors.New("invalid font style")
	ErrInvalidUnit  = errors.New("invalid unit")
	ErrInvalidSize  = errors.New("invalid size")
)

// A4 in points.
const (
	a4Width  = 595.28
	a4Height = 841.89
)

// Config configures a Document.
type Config struct {
	// Unit is the user unit for coordinates and page size: "pt", "mm",
	// "cm" or "in". Empty means "mm".
	Unit string
	// Width and Height are the page size in Unit. Zero means A4.
	Width, Height float64
	// Compression is the Flate level for streams; zero disables it.
	Compression   int
	Deterministic bool
	Info          *semantic.DocumentInfo
	// Shaping measures strings with HarfBuzz instead of summing advances.
	Shaping bool
	Logger  observability.Logger
	Writer  writer.Writer
}

type fontEntry struct {
	family  string
	style   string
	resName string
	font    *fonts.Font
	used    map[int][]rune
}

type page struct {
	ops   []semantic.Operation
	fonts map[string]*fontEntry
}

// Document accumulates pages and fonts until it is serialized.
type Document struct {
	cfg Config
	log observability.Logger
	k   float64 // points per user unit
	w   float64 // page width in user units
	h   float64

	pages     []*page
	fonts     map[string]*fontEntry
	fontCount int

	current    *fontEntry
	fontSizePt float64

	autoBreak   bool
	breakMargin float64
}

// New creates an empty document without pages.
func New(cfg Config) (*Document, error) {
	k, err := scaleFactor(cfg.Unit)
	if err != nil {
		return nil, err
	}
	if cfg.Width < 0 || cfg.Height < 0 || math.IsNaN(cfg.Width) || math.IsNaN(cfg.Height) {
		return nil, fmt.Errorf("%w: page size %vx%v", ErrInvalidSize, cfg.Width, cfg.Height)
	}
	w, h := cfg.Width, cfg.Height
	if w == 0 || h == 0 {
		w, h = a4Width/k, a4Height/k
	}
	return &Document{
		cfg:         cfg,
		log:         observability.OrNop(cfg.Logger),
		k:           k,
		w:           w,
		h:           h,
		fonts:       make(map[string]*fontEntry),
		autoBreak:   true,
		breakMargin: 2 * 72 / 2.54 / k,
	}, nil
}

func scaleFactor(unit string) (float64, error) {
	switch strings.ToLower(unit) {
	case "pt":
		return 1, nil
	case "", "mm":
		return 72 / 25.4, nil
	case "cm":
		return 72 / 2.54, nil
	case "in", "inch":
		return 72, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
}

// ScaleFactor returns the number of points per user unit.
func (d *Document) ScaleFactor() float64 { return d.k }

// PageSize returns the page size in user units.
func (d *Document) PageSize() (w, h float64) { return d.w, d.h }

// AddPage appends a page; later Text calls draw on it.
func (d *Document) AddPage() {
	d.pages = append(d.pages, &page{fonts: make(map[string]*fontEntry)})
	d.log.Debug("page added", observability.Int("page", len(d.pages)))
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// SetAutoPageBreak enables or disables automatic page breaks. margin is the
// distance from the bottom edge, in user units, that triggers a break.
func (d *Document) SetAutoPageBreak(auto bool, margin float64) {
	d.autoBreak = auto
	d.breakMargin = margin
}

// AddFont reads a TrueType file and registers it under family and style.
func (d *Document) AddFont(family, style, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return d.AddFontFromBytes(family, style, data)
}

// AddFontFromBytes registers TrueType data under family and style. A font
// already registered under the same key is kept.
func (d *Document) AddFontFromBytes(family, style string, data []byte) error {
	style, err := normalizeStyle(style)
	if err != nil {
		return err
	}
	family = strings.ToLower(family)
	key := fontKey(family, style)
	if _, ok := d.fonts[key]; ok {
		d.log.Debug("font already registered", observability.String("font", key))
		return nil
	}
	f, err := fonts.LoadTrueType(family, data)
	if err != nil {
		return fmt.Errorf("load font %s: %w", key, err)
	}
	d.register(family, style, f)
	return nil
}

func (d *Document) register(family, style string, f *fonts.Font) *fontEntry {
	d.fontCount++
	e := &fontEntry{
		family:  family,
		style:   style,
		resName: fmt.Sprintf("F%d", d.fontCount),
		font:    f,
		used:    make(map[int][]rune),
	}
	d.fonts[fontKey(family, style)] = e
	d.log.Debug("font registered",
		observability.String("family", family),
		observability.String("style", style),
		observability.String("postscript", f.Name()))
	return e
}

// lookup finds a registered font, registering bundled fonts on first use.
func (d *Document) lookup(family, style string) (*fontEntry, error) {
	style, err := normalizeStyle(style)
	if err != nil {
		return nil, err
	}
	family = strings.ToLower(family)
	if e, ok := d.fonts[fontKey(family, style)]; ok {
		return e, nil
	}
	if f, ok := fonts.Builtin(family, style); ok {
		return d.register(family, style, f), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFont, fontKey(family, style))
}

// SetFont selects the active font. size is in points; zero keeps the
// current size.
func (d *Document) SetFont(family, style string, size float64) error {
	if size < 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return fmt.Errorf("%w: font size %v", ErrInvalidSize, size)
	}
	e, err := d.lookup(family, style)
	if err != nil {
		return err
	}
	if size == 0 {
		size = d.fontSizePt
		if size == 0 {
			size = 12
		}
	}
	d.current = e
	d.fontSizePt = size
	return nil
}

// CurrentFont reports the active family, style and size in points.
func (d *Document) CurrentFont() (family, style string, size float64, ok bool) {
	if d.current == nil {
		return "", "", 0, false
	}
	return d.current.family, d.current.style, d.fontSizePt, true
}

// StringWidth returns the width of text in the active font, in user units.
// It is zero when no font is selected.
func (d *Document) StringWidth(text string) float64 {
	if d.current == nil {
		return 0
	}
	return d.advance(d.current, text) * d.fontSizePt / 1000 / d.k
}

// MeasureString returns the width of text in the given font, in user
// units, without changing the active font.
func (d *Document) MeasureString(family, style string, size float64, text string) (float64, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return 0, fmt.Errorf("%w: font size %v", ErrInvalidSize, size)
	}
	e, err := d.lookup(family, style)
	if err != nil {
		return 0, err
	}
	return d.advance(e, text) * size / 1000 / d.k, nil
}

func (d *Document) advance(e *fontEntry, text string) float64 {
	total := 0.0
	for _, g := range d.run(e, text) {
		total += g.XAdvance
	}
	return total
}

// run returns the glyphs Text draws for text. Measurement sums the same
// advances, so a measured width is the drawn width.
func (d *Document) run(e *fontEntry, text string) []fonts.ShapedGlyph {
	if text == "" {
		return nil
	}
	if d.cfg.Shaping {
		glyphs, err := e.font.Shape(text)
		if err == nil {
			return glyphs
		}
		d.log.Warn("shaping failed, using plain advances",
			observability.String("font", fontKey(e.family, e.style)),
			observability.Error("error", err))
	}
	plain := e.font.Glyphs(text)
	glyphs := make([]fonts.ShapedGlyph, len(plain))
	for i, g := range plain {
		glyphs[i] = fonts.ShapedGlyph{ID: g.ID, Cluster: i, Runes: g.Runes, XAdvance: float64(g.Advance)}
	}
	return glyphs
}

// showText encodes glyphs as Identity-H codes. When an advance differs
// from the glyph's W entry the difference goes into a TJ array; otherwise
// a single Tj is enough.
func showText(glyphs []fonts.ShapedGlyph, width func(gid int) int) semantic.Operation {
	var (
		values  []semantic.Operand
		pending []byte
		adjusts bool
	)
	for _, g := range glyphs {
		pending = append(pending, byte(g.ID>>8), byte(g.ID))
		// TJ numbers are subtracted from the position in 1/1000 em.
		adj := float64(width(g.ID)) - g.XAdvance
		if math.Abs(adj) < 1e-6 {
			continue
		}
		adjusts = true
		values = append(values,
			semantic.StringOperand{Value: pending, Hex: true},
			semantic.NumberOperand{Value: adj})
		pending = nil
	}
	if !adjusts {
		return semantic.Operation{
			Operator: "Tj",
			Operands: []semantic.Operand{semantic.StringOperand{Value: pending, Hex: true}},
		}
	}
	if len(pending) > 0 {
		values = append(values, semantic.StringOperand{Value: pending, Hex: true})
	}
	return semantic.Operation{
		Operator: "TJ",
		Operands: []semantic.Operand{semantic.ArrayOperand{Values: values}},
	}
}

// Text draws text with its baseline at (x, y), measured in user units from
// the top-left corner of the current page.
func (d *Document) Text(x, y float64, text string) error {
	if len(d.pages) == 0 {
		return ErrNoPage
	}
	if d.current == nil {
		return ErrNoFont
	}
	if text == "" {
		return nil
	}
	if d.autoBreak && y > d.h-d.breakMargin {
		d.AddPage()
		y = d.breakMargin + d.fontSizePt/d.k
	}
	e := d.current
	glyphs := d.run(e, text)
	for _, g := range glyphs {
		if len(e.used[g.ID]) == 0 {
			e.used[g.ID] = g.Runes
		}
	}

	p := d.pages[len(d.pages)-1]
	p.fonts[e.resName] = e
	p.ops = append(p.ops,
		semantic.Operation{Operator: "BT"},
		semantic.Operation{
			Operator: "Tf",
			Operands: []semantic.Operand{semantic.NameOperand{Value: e.resName}, semantic.NumberOperand{Value: d.fontSizePt}},
		},
		semantic.Operation{
			Operator: "Tm",
			Operands: []semantic.Operand{
				semantic.NumberOperand{Value: 1},
				semantic.NumberOperand{Value: 0},
				semantic.NumberOperand{Value: 0},
				semantic.NumberOperand{Value: 1},
				semantic.NumberOperand{Value: x * d.k},
				semantic.NumberOperand{Value: (d.h - y) * d.k},
			},
		},
		showText(glyphs, e.font.GlyphAdvance),
		semantic.Operation{Operator: "ET"},
	)
	return nil
}

// Document returns the semantic form of the document.
func (d *Document) Document() (*semantic.Document, error) {
	if len(d.pages) == 0 {
		return nil, ErrNoPage
	}
	built := make(map[*fontEntry]*semantic.Font)
	doc := &semantic.Document{Info: d.cfg.Info}
	for i, p := range d.pages {
		res := &semantic.Resources{Fonts: make(map[string]*semantic.Font, len(p.fonts))}
		for name, e := range p.fonts {
			f, ok := built[e]
			if !ok {
				f = e.font.Semantic(e.used)
				built[e] = f
			}
			res.Fonts[name] = f
		}
		doc.Pages = append(doc.Pages, &semantic.Page{
			Index:     i,
			MediaBox:  semantic.Rectangle{URX: d.w * d.k, URY: d.h * d.k},
			Resources: res,
			Contents:  []semantic.ContentStream{{Operations: append([]semantic.Operation(nil), p.ops...)}},
		})
	}
	return doc, nil
}

// Output serializes the document to w.
func (d *Document) Output(w io.Writer) error {
	return d.OutputContext(context.Background(), w)
}

// OutputContext serializes the document to w, checking ctx between objects.
func (d *Document) OutputContext(ctx context.Context, w io.Writer) error {
	doc, err := d.Document()
	if err != nil {
		return err
	}
	wr := d.cfg.Writer
	if wr == nil {
		wr = writer.NewWriter()
	}
	cfg := writer.Config{Compression: d.cfg.Compression, Deterministic: d.cfg.Deterministic}
	if err := wr.Write(ctx, doc, w, cfg); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	d.log.Info("document written", observability.Int("pages", len(doc.Pages)))
	return nil
}

// OutputFile writes the document to path.
func (d *Document) OutputFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Output(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizeStyle upper-cases style and orders it as "", "B", "I" or "BI".
func normalizeStyle(style string) (string, error) {
	bold, italic := false, false
	for _, r := range strings.ToUpper(style) {
		switch r {
		case 'B':
			bold = true
		case 'I':
			italic = true
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidStyle, style)
		}
	}
	switch {
	case bold && italic:
		return "BI", nil
	case bold:
		return "B", nil
	case italic:
		return "I", nil
	}
	return "", nil
}

func fontKey(family, style string) string { return family + "/" + style }
