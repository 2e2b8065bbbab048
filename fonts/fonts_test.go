package fonts

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func TestLoadTrueTypeMetrics(t *testing.T) {
	f, err := LoadTrueType("fallback", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Name() == "" || f.Name() == "fallback" || strings.Contains(f.Name(), " ") {
		t.Fatalf("unexpected PostScript name %q", f.Name())
	}
	if f.Ascent() <= 0 || f.Descent() >= 0 {
		t.Fatalf("expected positive ascent and negative descent, got %v %v", f.Ascent(), f.Descent())
	}
	d := f.Descriptor()
	if len(d.FontFile) != len(goregular.TTF) {
		t.Fatalf("descriptor should carry the font file")
	}
	if d.FontBBox[1] >= 0 || d.FontBBox[3] <= 0 {
		t.Fatalf("bbox not in y-up space: %v", d.FontBBox)
	}
	if d.Flags&32 == 0 {
		t.Fatalf("expected nonsymbolic flag, got %d", d.Flags)
	}
}

func TestItalicFlagAndMonoAdvances(t *testing.T) {
	it, err := LoadTrueType("", goitalic.TTF)
	if err != nil {
		t.Fatalf("load italic: %v", err)
	}
	if d := it.Descriptor(); (d.ItalicAngle != 0) != (d.Flags&64 != 0) {
		t.Fatalf("italic flag disagrees with angle: %v %d", d.ItalicAngle, d.Flags)
	}
	mono, err := LoadTrueType("", gomono.TTF)
	if err != nil {
		t.Fatalf("load mono: %v", err)
	}
	if mono.Advance("iiii") != mono.Advance("MMMM") {
		t.Fatalf("mono advances should not depend on glyphs")
	}
}

func TestLoadTrueTypeErrors(t *testing.T) {
	if _, err := LoadTrueType("x", nil); !errors.Is(err, ErrEmptyFont) {
		t.Fatalf("expected ErrEmptyFont, got %v", err)
	}
	if _, err := LoadTrueType("x", []byte("definitely not a font file")); err == nil {
		t.Fatalf("expected parse error")
	}
	otto := append([]byte("OTTO"), 0, 1, 0, 0, 0, 0, 0, 0)
	otto = append(otto, []byte("CFF ")...)
	otto = append(otto, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	if _, err := LoadTrueType("x", otto); !errors.Is(err, ErrCFFOutlines) {
		t.Fatalf("expected ErrCFFOutlines, got %v", err)
	}
}

func TestAdvanceMonotonic(t *testing.T) {
	f, err := LoadTrueType("", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Advance("") != 0 {
		t.Fatalf("empty advance should be 0")
	}
	prev := 0.0
	for _, s := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		w := f.Advance(s)
		if w <= prev {
			t.Fatalf("advance(%q) = %v not greater than %v", s, w, prev)
		}
		prev = w
	}
}

func TestGlyphsNormalizeToNFC(t *testing.T) {
	f, err := LoadTrueType("", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	composed := f.Glyphs("\u00e9")
	decomposed := f.Glyphs("e\u0301")
	if diff := cmp.Diff(composed, decomposed); diff != "" {
		t.Fatalf("NFC mismatch (-composed +decomposed):\n%s", diff)
	}
	if len(composed) != 1 || composed[0].ID == 0 {
		t.Fatalf("expected one mapped glyph, got %+v", composed)
	}
	if gid, ok := f.GlyphIndex('\U0010FFFD'); ok || gid != 0 {
		t.Fatalf("unmapped rune should give .notdef")
	}
}

func TestSemanticOnlyUsedGlyphs(t *testing.T) {
	f, err := LoadTrueType("", goregular.TTF)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	gid, _ := f.GlyphIndex('A')
	sem := f.Semantic(map[int][]rune{gid: {'A'}, 0: nil})
	if len(sem.Widths) != 2 {
		t.Fatalf("expected widths for 2 glyphs, got %d", len(sem.Widths))
	}
	if diff := cmp.Diff(map[int][]rune{gid: {'A'}}, sem.ToUnicode); diff != "" {
		t.Fatalf("ToUnicode mismatch:\n%s", diff)
	}
	if sem.Widths[gid] != f.GlyphAdvance(gid) {
		t.Fatalf("width mismatch")
	}
	if sem.DescendantFont == nil || sem.DescendantFont.Subtype != "CIDFontType2" {
		t.Fatalf("expected CIDFontType2 descendant")
	}
}

func TestBuiltin(t *testing.T) {
	for _, family := range []string{"go", "Helvetica", "arial", "times", "courier", "GoMono"} {
		for _, style := range []string{"", "B", "I", "BI"} {
			if _, ok := Builtin(family, style); !ok {
				t.Fatalf("builtin %s/%s missing", family, style)
			}
		}
	}
	a, _ := Builtin("helvetica", "")
	b, _ := Builtin("go", "")
	if a != b {
		t.Fatalf("aliases should share the parsed font")
	}
	if _, ok := Builtin("gentium", ""); ok {
		t.Fatalf("unexpected builtin for unknown family")
	}
	if _, ok := BuiltinData("go", "U"); ok {
		t.Fatalf("unexpected builtin for unknown style")
	}
}

func TestParseTableDirectory(t *testing.T) {
	tables, err := ParseTableDirectory(goregular.TTF)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, tag := range []string{"glyf", "head", "hmtx", "cmap"} {
		if _, ok := tables[tag]; !ok {
			t.Fatalf("missing table %q", tag)
		}
	}
	if _, err := ParseTableDirectory([]byte{0, 0}); err == nil {
		t.Fatalf("expected error for truncated data")
	}
}
