package typeset

import "testing"

func TestFilenameRules(t *testing.T) {
	tests := []struct {
		stem      string
		reference Style
		specific  Style
	}{
		{"GenBasR", Regular, Regular},
		{"GenBasI", Italic, Italic},
		{"GenBasB", Bold, Bold},
		// The reference order sees the trailing I or B first.
		{"GenBasBI", Italic, BoldItalic},
		{"GenBasIB", Bold, BoldItalic},
		{"", Regular, Regular},
		{"Gentium", Regular, Regular},
	}
	ref, spec := FilenameSuffixRules(), SpecificSuffixRules()
	for _, tt := range tests {
		if got := ref.Classify(tt.stem); got != tt.reference {
			t.Errorf("FilenameSuffixRules(%q) = %v, want %v", tt.stem, got, tt.reference)
		}
		if got := spec.Classify(tt.stem); got != tt.specific {
			t.Errorf("SpecificSuffixRules(%q) = %v, want %v", tt.stem, got, tt.specific)
		}
	}
}

func TestStyleNameRules(t *testing.T) {
	tests := []struct {
		name      string
		reference Style
		combined  Style
	}{
		{"Regular", Regular, Regular},
		{"Italic", Italic, Italic},
		{"Bold", Bold, Bold},
		{"Bold Italic", Italic, BoldItalic},
		{"BoldItalic", Italic, BoldItalic},
		{"italic", Regular, Regular},
	}
	ref, combined := StyleNameRules(), CombinedStyleNameRules()
	for _, tt := range tests {
		if got := ref.Classify(tt.name); got != tt.reference {
			t.Errorf("StyleNameRules(%q) = %v, want %v", tt.name, got, tt.reference)
		}
		if got := combined.Classify(tt.name); got != tt.combined {
			t.Errorf("CombinedStyleNameRules(%q) = %v, want %v", tt.name, got, tt.combined)
		}
	}
}

func TestStyleCodes(t *testing.T) {
	tests := []struct {
		style        Style
		code, name   string
		bold, italic bool
	}{
		{Regular, "", "Regular", false, false},
		{Italic, "I", "Italic", false, true},
		{Bold, "B", "Bold", true, false},
		{BoldItalic, "BI", "BoldItalic", true, true},
	}
	for _, tt := range tests {
		if tt.style.Code() != tt.code || tt.style.String() != tt.name {
			t.Errorf("%d: code %q name %q", tt.style, tt.style.Code(), tt.style.String())
		}
		if tt.style.IsBold() != tt.bold || tt.style.IsItalic() != tt.italic {
			t.Errorf("%v: bold/italic flags wrong", tt.style)
		}
	}
}

func TestCustomRules(t *testing.T) {
	rules := Rules{Suffix("-Heavy", Bold), Contains(Italic, "Oblique")}
	if rules.Classify("Sans-Heavy") != Bold {
		t.Fatalf("suffix rule did not match")
	}
	if rules.Classify("Sans Oblique") != Italic {
		t.Fatalf("contains rule did not match")
	}
	if rules.Classify("Sans") != Regular {
		t.Fatalf("no match should be Regular")
	}
	if Rules(nil).Classify("anything") != Regular {
		t.Fatalf("empty rules should be Regular")
	}
}
