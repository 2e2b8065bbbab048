package fonts

import (
	"bytes"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

// shaper wraps a HarfBuzz shaper and its face. Neither is safe for
// concurrent use.
type shaper struct {
	mu   sync.Mutex
	face *gotext.Face
	hb   shaping.HarfbuzzShaper
}

func (f *Font) loadShaper() (*shaper, error) {
	f.shapeOnce.Do(func() {
		face, err := gotext.ParseTTF(bytes.NewReader(f.data))
		if err != nil {
			f.shapeErr = err
			return
		}
		f.shaper = &shaper{face: face}
	})
	return f.shaper, f.shapeErr
}

// ShapedGlyph is one glyph of a shaped run, in visual order.
type ShapedGlyph struct {
	ID       int
	Cluster  int
	Runes    []rune  // empty for the later glyphs of a cluster
	XAdvance float64 // 1/1000 em
}

// Shape runs HarfBuzz over text, so ligatures and GPOS kerning are applied.
func (f *Font) Shape(text string) ([]ShapedGlyph, error) {
	runes := []rune(norm.NFC.String(text))
	if len(runes) == 0 {
		return nil, nil
	}
	s, err := f.loadShaper()
	if err != nil {
		return nil, err
	}
	script := DetectScript(runes)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      s.face,
		// 1000 px per em, so advances come back in 1/1000 em.
		Size:     fixed.Int26_6(1000 * 64),
		Script:   script,
		Language: language.DefaultLanguage(),
	}
	s.mu.Lock()
	out := s.hb.Shape(input)
	s.mu.Unlock()

	glyphs := make([]ShapedGlyph, 0, len(out.Glyphs))
	seen := make(map[int]bool, len(out.Glyphs))
	for _, g := range out.Glyphs {
		sg := ShapedGlyph{
			ID:       int(g.GlyphID),
			Cluster:  g.ClusterIndex,
			XAdvance: float64(g.XAdvance) / 64.0,
		}
		if !seen[g.ClusterIndex] {
			seen[g.ClusterIndex] = true
			end := g.ClusterIndex + g.RuneCount
			if end > len(runes) {
				end = len(runes)
			}
			sg.Runes = runes[g.ClusterIndex:end]
		}
		glyphs = append(glyphs, sg)
	}
	return glyphs, nil
}

// ShapedAdvance returns the width of text in 1/1000 em after shaping.
func (f *Font) ShapedAdvance(text string) (float64, error) {
	glyphs, err := f.Shape(text)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, g := range glyphs {
		total += g.XAdvance
	}
	if total < 0 {
		total = -total
	}
	return total, nil
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

var scriptTables = []struct {
	table  *unicode.RangeTable
	script language.Script
}{
	{unicode.Arabic, language.Arabic},
	{unicode.Hebrew, language.Hebrew},
	{unicode.Latin, language.Latin},
	{unicode.Cyrillic, language.Cyrillic},
	{unicode.Greek, language.Greek},
	{unicode.Thai, language.Thai},
	{unicode.Devanagari, language.Devanagari},
	{unicode.Han, language.Han},
	{unicode.Hiragana, language.Hiragana},
	{unicode.Katakana, language.Katakana},
	{unicode.Hangul, language.Hangul},
}

// DetectScript returns the script with the most runes in text; ties keep
// the script seen first. Text without any known script is Latin.
func DetectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			best = script
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	for _, st := range scriptTables {
		if unicode.Is(st.table, r) {
			return st.script
		}
	}
	return language.Unknown
}
