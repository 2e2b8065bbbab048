package typeset

import "strings"

// Style is one of the four faces of a family.
type Style int

const (
	Regular Style = iota
	Italic
	Bold
	BoldItalic
)

func (s Style) String() string {
	switch s {
	case Italic:
		return "Italic"
	case Bold:
		return "Bold"
	case BoldItalic:
		return "BoldItalic"
	}
	return "Regular"
}

// Code returns the backend style code: "", "I", "B" or "BI".
func (s Style) Code() string {
	switch s {
	case Italic:
		return "I"
	case Bold:
		return "B"
	case BoldItalic:
		return "BI"
	}
	return ""
}

func (s Style) IsBold() bool   { return s == Bold || s == BoldItalic }
func (s Style) IsItalic() bool { return s == Italic || s == BoldItalic }

// Rule maps a matching input to a style.
type Rule struct {
	Name  string
	Match func(string) bool
	Style Style
}

// Rules is evaluated in order; the first matching rule wins and no match
// means Regular.
type Rules []Rule

// Classify returns the style of the first rule matching s.
func (r Rules) Classify(s string) Style {
	for _, rule := range r {
		if rule.Match(s) {
			return rule.Style
		}
	}
	return Regular
}

// Suffix matches inputs ending in suffix.
func Suffix(suffix string, style Style) Rule {
	return Rule{
		Name:  "suffix " + suffix,
		Match: func(s string) bool { return strings.HasSuffix(s, suffix) },
		Style: style,
	}
}

// Contains matches inputs containing every one of words.
func Contains(style Style, words ...string) Rule {
	return Rule{
		Name: "contains " + strings.Join(words, "+"),
		Match: func(s string) bool {
			for _, w := range words {
				if !strings.Contains(s, w) {
					return false
				}
			}
			return true
		},
		Style: style,
	}
}

// FilenameSuffixRules classifies font file stems in the reference order:
// a single trailing I or B is checked before BI and IB, so "GenBasBI" is
// Italic and the two-letter rules never fire.
func FilenameSuffixRules() Rules {
	return Rules{
		Suffix("I", Italic),
		Suffix("B", Bold),
		Suffix("BI", BoldItalic),
		Suffix("IB", BoldItalic),
	}
}

// SpecificSuffixRules checks the two-letter suffixes first.
func SpecificSuffixRules() Rules {
	return Rules{
		Suffix("BI", BoldItalic),
		Suffix("IB", BoldItalic),
		Suffix("I", Italic),
		Suffix("B", Bold),
	}
}

// StyleNameRules classifies style names in the reference order: "Bold
// Italic" is Italic.
func StyleNameRules() Rules {
	return Rules{
		Contains(Italic, "Italic"),
		Contains(Bold, "Bold"),
	}
}

// CombinedStyleNameRules resolves names containing both words to BoldItalic.
func CombinedStyleNameRules() Rules {
	return Rules{
		Contains(BoldItalic, "Bold", "Italic"),
		Contains(Italic, "Italic"),
		Contains(Bold, "Bold"),
	}
}
