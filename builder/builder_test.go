package builder

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdfkern/fonts"
	"github.com/wudi/pdfkern/ir/semantic"
)

func newPtDoc(t *testing.T) *Document {
	t.Helper()
	d, err := New(Config{Unit: "pt", Width: 612, Height: 792})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return d
}

func TestScaleFactor(t *testing.T) {
	tests := []struct {
		unit string
		want float64
	}{
		{"pt", 1},
		{"", 72 / 25.4},
		{"mm", 72 / 25.4},
		{"cm", 72 / 2.54},
		{"in", 72},
	}
	for _, tt := range tests {
		d, err := New(Config{Unit: tt.unit})
		if err != nil {
			t.Fatalf("unit %q: %v", tt.unit, err)
		}
		if d.ScaleFactor() != tt.want {
			t.Fatalf("unit %q: k = %v want %v", tt.unit, d.ScaleFactor(), tt.want)
		}
	}
	if _, err := New(Config{Unit: "furlong"}); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("expected ErrInvalidUnit, got %v", err)
	}
	if _, err := New(Config{Width: -1, Height: 10}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestDefaultPageSizeIsA4(t *testing.T) {
	d, err := New(Config{Unit: "pt"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	w, h := d.PageSize()
	if w != a4Width || h != a4Height {
		t.Fatalf("got %vx%v", w, h)
	}
}

func TestNormalizeStyle(t *testing.T) {
	for in, want := range map[string]string{"": "", "b": "B", "I": "I", "BI": "BI", "IB": "BI", "ib": "BI", "BB": "B"} {
		got, err := normalizeStyle(in)
		if err != nil || got != want {
			t.Fatalf("normalizeStyle(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := normalizeStyle("U"); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("expected ErrInvalidStyle, got %v", err)
	}
}

func TestSetFontAndCurrentFont(t *testing.T) {
	d := newPtDoc(t)
	if _, _, _, ok := d.CurrentFont(); ok {
		t.Fatalf("fresh document should have no font")
	}
	if err := d.AddFontFromBytes("GentiumBasic", "IB", gobold.TTF); err != nil {
		t.Fatalf("add font: %v", err)
	}
	if err := d.SetFont("GentiumBasic", "BI", 14); err != nil {
		t.Fatalf("set font: %v", err)
	}
	fam, style, size, ok := d.CurrentFont()
	if !ok || fam != "gentiumbasic" || style != "BI" || size != 14 {
		t.Fatalf("current font = %q %q %v %v", fam, style, size, ok)
	}
	if err := d.SetFont("gentiumbasic", "bi", 0); err != nil {
		t.Fatalf("set font keeping size: %v", err)
	}
	if _, _, size, _ := d.CurrentFont(); size != 14 {
		t.Fatalf("size 0 should keep current size, got %v", size)
	}
	if err := d.SetFont("gentiumbasic", "", 12); !errors.Is(err, ErrUnknownFont) {
		t.Fatalf("expected ErrUnknownFont, got %v", err)
	}
	if err := d.SetFont("gentiumbasic", "BI", -1); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
	if _, style, _, _ := d.CurrentFont(); style != "BI" {
		t.Fatalf("failed SetFont must not change the active font")
	}
}

func TestBuiltinFontsResolveLazily(t *testing.T) {
	d := newPtDoc(t)
	if err := d.SetFont("Helvetica", "B", 10); err != nil {
		t.Fatalf("set builtin font: %v", err)
	}
	if d.StringWidth("Hello") <= 0 {
		t.Fatalf("expected positive width")
	}
}

func TestStringWidthUnits(t *testing.T) {
	pt := newPtDoc(t)
	mm, err := New(Config{Unit: "mm"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, d := range []*Document{pt, mm} {
		if d.StringWidth("x") != 0 {
			t.Fatalf("width without a font should be 0")
		}
		if err := d.SetFont("go", "", 12); err != nil {
			t.Fatalf("set font: %v", err)
		}
	}
	wpt := pt.StringWidth("Hello World")
	wmm := mm.StringWidth("Hello World")
	if math.Abs(wpt*25.4/72-wmm) > 1e-9 {
		t.Fatalf("pt width %v and mm width %v disagree", wpt, wmm)
	}
	if pt.StringWidth("") != 0 {
		t.Fatalf("empty width should be 0")
	}
	if pt.StringWidth("Hi") >= wpt {
		t.Fatalf("shorter string should be narrower")
	}
}

func TestMeasureStringKeepsActiveFont(t *testing.T) {
	d := newPtDoc(t)
	if err := d.SetFont("go", "", 10); err != nil {
		t.Fatalf("set font: %v", err)
	}
	w, err := d.MeasureString("go", "B", 20, "Hello")
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	fam, style, size, _ := d.CurrentFont()
	if fam != "go" || style != "" || size != 10 {
		t.Fatalf("active font changed to %q %q %v", fam, style, size)
	}
	if err := d.SetFont("go", "B", 20); err != nil {
		t.Fatalf("set font: %v", err)
	}
	if got := d.StringWidth("Hello"); got != w {
		t.Fatalf("MeasureString %v != StringWidth %v", w, got)
	}
	if _, err := d.MeasureString("go", "", 0, "x"); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestTextPreconditions(t *testing.T) {
	d := newPtDoc(t)
	if err := d.Text(10, 10, "x"); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	d.AddPage()
	if err := d.Text(10, 10, "x"); !errors.Is(err, ErrNoFont) {
		t.Fatalf("expected ErrNoFont, got %v", err)
	}
}

func TestTextOperations(t *testing.T) {
	d := newPtDoc(t)
	d.SetAutoPageBreak(false, 0)
	d.AddPage()
	if err := d.AddFontFromBytes("body", "", goregular.TTF); err != nil {
		t.Fatalf("add font: %v", err)
	}
	if err := d.SetFont("body", "", 12); err != nil {
		t.Fatalf("set font: %v", err)
	}
	if err := d.Text(100, 100, "Hi"); err != nil {
		t.Fatalf("text: %v", err)
	}
	doc, err := d.Document()
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	ops := doc.Pages[0].Contents[0].Operations
	var operators []string
	for _, op := range ops {
		operators = append(operators, op.Operator)
	}
	if diff := cmp.Diff([]string{"BT", "Tf", "Tm", "Tj", "ET"}, operators); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}
	tm := ops[2].Operands
	if tm[4].(semantic.NumberOperand).Value != 100 || tm[5].(semantic.NumberOperand).Value != 692 {
		t.Fatalf("Tm should flip y to bottom-left origin: %+v", tm)
	}
	tj := ops[3].Operands[0].(semantic.StringOperand)
	if !tj.Hex || len(tj.Value) != 4 {
		t.Fatalf("expected two 2-byte glyph IDs, got %+v", tj)
	}
	font := doc.Pages[0].Resources.Fonts["F1"]
	if font == nil {
		t.Fatalf("page resources missing F1")
	}
	if len(font.ToUnicode) != 2 {
		t.Fatalf("expected ToUnicode for H and i, got %v", font.ToUnicode)
	}
	if doc.Pages[0].MediaBox.URX != 612 || doc.Pages[0].MediaBox.URY != 792 {
		t.Fatalf("unexpected media box %+v", doc.Pages[0].MediaBox)
	}
}

func TestAutoPageBreak(t *testing.T) {
	d := newPtDoc(t)
	d.SetAutoPageBreak(true, 50)
	d.AddPage()
	if err := d.SetFont("go", "", 12); err != nil {
		t.Fatalf("set font: %v", err)
	}
	if err := d.Text(72, 700, "fits"); err != nil {
		t.Fatalf("text: %v", err)
	}
	if d.PageCount() != 1 {
		t.Fatalf("no break expected yet")
	}
	if err := d.Text(72, 760, "overflows"); err != nil {
		t.Fatalf("text: %v", err)
	}
	if d.PageCount() != 2 {
		t.Fatalf("expected automatic break, have %d pages", d.PageCount())
	}

	d.SetAutoPageBreak(false, 0)
	if err := d.Text(72, 790, "no break"); err != nil {
		t.Fatalf("text: %v", err)
	}
	if d.PageCount() != 2 {
		t.Fatalf("disabled auto break still added a page")
	}
}

func TestAddFontFromFile(t *testing.T) {
	d := newPtDoc(t)
	path := filepath.Join(t.TempDir(), "GoR.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}
	if err := d.AddFont("fam", "", path); err != nil {
		t.Fatalf("add font: %v", err)
	}
	if err := d.AddFont("fam", "B", filepath.Join(t.TempDir(), "missing.ttf")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.AddFont("fam", "I", bad); err == nil {
		t.Fatalf("expected error for malformed font")
	}
	// Re-registering keeps the first font.
	if err := d.AddFont("fam", "", path); err != nil {
		t.Fatalf("re-add font: %v", err)
	}
	if len(d.fonts) != 1 {
		t.Fatalf("expected one registered font, got %d", len(d.fonts))
	}
}

func TestOutput(t *testing.T) {
	d, err := New(Config{
		Unit:          "pt",
		Width:         300,
		Height:        200,
		Compression:   6,
		Deterministic: true,
		Info:          &semantic.DocumentInfo{Title: "Test"},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := d.Bytes(); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
	d.AddPage()
	if err := d.SetFont("courier", "", 9); err != nil {
		t.Fatalf("set font: %v", err)
	}
	if err := d.Text(10, 20, "Hello, World!"); err != nil {
		t.Fatalf("text: %v", err)
	}
	out, err := d.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) || !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Fatalf("not a PDF")
	}
	again, err := d.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if !bytes.Equal(out, again) {
		t.Fatalf("deterministic output changed between calls")
	}

	path := filepath.Join(t.TempDir(), "out.pdf")
	if err := d.OutputFile(path); err != nil {
		t.Fatalf("output file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != int64(len(out)) {
		t.Fatalf("file size mismatch: %v %v", info, err)
	}
}

func TestShapingMeasurement(t *testing.T) {
	d, err := New(Config{Unit: "pt", Shaping: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := d.SetFont("go", "", 12); err != nil {
		t.Fatalf("set font: %v", err)
	}
	if w := d.StringWidth("Hello"); w <= 0 {
		t.Fatalf("expected shaped width > 0, got %v", w)
	}
}

func TestShowTextKernAdjustments(t *testing.T) {
	width := func(int) int { return 600 }
	kerned := []fonts.ShapedGlyph{
		{ID: 0x24, XAdvance: 550},
		{ID: 0x39, XAdvance: 600},
		{ID: 0x0103, XAdvance: 600},
	}
	want := semantic.Operation{
		Operator: "TJ",
		Operands: []semantic.Operand{semantic.ArrayOperand{Values: []semantic.Operand{
			semantic.StringOperand{Value: []byte{0x00, 0x24}, Hex: true},
			semantic.NumberOperand{Value: 50},
			semantic.StringOperand{Value: []byte{0x00, 0x39, 0x01, 0x03}, Hex: true},
		}}},
	}
	if diff := cmp.Diff(want, showText(kerned, width)); diff != "" {
		t.Fatalf("kerned run (-want +got):\n%s", diff)
	}

	plain := []fonts.ShapedGlyph{{ID: 1, XAdvance: 600}, {ID: 2, XAdvance: 600}}
	want = semantic.Operation{
		Operator: "Tj",
		Operands: []semantic.Operand{semantic.StringOperand{Value: []byte{0, 1, 0, 2}, Hex: true}},
	}
	if diff := cmp.Diff(want, showText(plain, width)); diff != "" {
		t.Fatalf("plain run (-want +got):\n%s", diff)
	}
}

// drawnWidth sums the W entries of the shown glyphs less the TJ
// adjustments, in 1/1000 em.
func drawnWidth(t *testing.T, op semantic.Operation, widths map[int]int) float64 {
	t.Helper()
	total := 0.0
	addCodes := func(b []byte) {
		for i := 0; i+1 < len(b); i += 2 {
			gid := int(b[i])<<8 | int(b[i+1])
			w, ok := widths[gid]
			if !ok {
				t.Fatalf("glyph %d has no W entry", gid)
			}
			total += float64(w)
		}
	}
	switch op.Operator {
	case "Tj":
		addCodes(op.Operands[0].(semantic.StringOperand).Value)
	case "TJ":
		for _, v := range op.Operands[0].(semantic.ArrayOperand).Values {
			switch v := v.(type) {
			case semantic.StringOperand:
				addCodes(v.Value)
			case semantic.NumberOperand:
				total -= v.Value
			}
		}
	default:
		t.Fatalf("unexpected show operator %q", op.Operator)
	}
	return total
}

func TestMeasuredWidthIsDrawnWidth(t *testing.T) {
	for _, shaping := range []bool{false, true} {
		d, err := New(Config{Unit: "pt", Width: 612, Height: 792, Shaping: shaping})
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		d.SetAutoPageBreak(false, 0)
		d.AddPage()
		if err := d.SetFont("go", "", 12); err != nil {
			t.Fatalf("set font: %v", err)
		}
		text := "AVATAR To Wally, office fjord"
		measured, err := d.MeasureString("go", "", 12, text)
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		if err := d.Text(72, 100, text); err != nil {
			t.Fatalf("text: %v", err)
		}
		doc, err := d.Document()
		if err != nil {
			t.Fatalf("document: %v", err)
		}
		ops := doc.Pages[0].Contents[0].Operations
		font := doc.Pages[0].Resources.Fonts["F1"]
		if font == nil {
			t.Fatalf("page resources missing F1")
		}
		drawn := drawnWidth(t, ops[3], font.Widths) * 12 / 1000
		if math.Abs(drawn-measured) > 1e-6 {
			t.Errorf("shaping=%v: measured %v, drawn %v", shaping, measured, drawn)
		}
	}
}
