// Package layout typesets plain text, Markdown and HTML onto the pages of a
// typeset.Session with a greedy line breaker.
package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/pdfkern/typeset"
)

// ErrNoRomanFont is returned by NewEngine when the font map has no "roman"
// entry.
var ErrNoRomanFont = errors.New("layout: roman font required")

// Engine places blocks of text top to bottom, starting a new page when the
// next line would cross the bottom margin.
type Engine struct {
	s      *typeset.Session
	roman  *typeset.Font
	title  *typeset.Font
	italic *typeset.Font

	// Configuration
	LineHeight float64 // Multiplier of the font height, e.g., 1.2
	Margins    Margins
	ListIndent float64

	// State
	active     *typeset.Font
	cursorY    float64
	pageWidth  float64
	pageHeight float64
}

// Margins defines page margins in points.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithLineHeight sets the line height multiplier.
func WithLineHeight(height float64) Option {
	return func(e *Engine) {
		if height > 0 {
			e.LineHeight = height
		}
	}
}

// WithMargins sets the page margins.
func WithMargins(margins Margins) Option {
	return func(e *Engine) {
		e.Margins = margins
	}
}

// WithListIndent sets how far list item text is indented.
func WithListIndent(indent float64) Option {
	return func(e *Engine) {
		e.ListIndent = indent
	}
}

// NewEngine creates a layout engine drawing on s. fonts must hold "roman";
// "title" is used for headings and "italic" for emphasis and quotes when
// present.
func NewEngine(s *typeset.Session, fonts map[string]*typeset.Font, opts ...Option) (*Engine, error) {
	roman := fonts["roman"]
	if roman == nil {
		return nil, ErrNoRomanFont
	}
	w, h := s.PageSize()
	e := &Engine{
		s:          s,
		roman:      roman,
		title:      fonts["title"],
		italic:     fonts["italic"],
		LineHeight: 1.2,
		Margins:    Margins{Top: 72, Bottom: 72, Left: 72, Right: 72},
		ListIndent: 18,
		pageWidth:  w,
		pageHeight: h,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Margins.Left+e.Margins.Right >= w || e.Margins.Top+e.Margins.Bottom >= h {
		return nil, fmt.Errorf("layout: margins %+v leave no room on a %vx%v page", e.Margins, w, h)
	}
	if e.title == nil {
		e.title = roman
	}
	if e.italic == nil {
		e.italic = roman
	}
	e.cursorY = e.Margins.Top
	return e, nil
}

// ColumnWidth is the width available to unindented text.
func (e *Engine) ColumnWidth() float64 {
	return e.pageWidth - e.Margins.Left - e.Margins.Right
}

// Cursor returns the top of the next line in points from the page top.
func (e *Engine) Cursor() float64 { return e.cursorY }

// Wrap breaks text into lines no wider than width. Words are separated by
// white space; a word wider than width gets a line of its own.
func Wrap(text string, f *typeset.Font, width float64) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		w, err := f.WidthOf(candidate)
		if err != nil {
			return nil, err
		}
		if w <= width {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	return append(lines, line), nil
}

// RenderText typesets paragraphs separated by blank lines.
func (e *Engine) RenderText(source string) error {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	for _, para := range strings.Split(source, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if err := e.paragraph(para, e.roman, 0); err != nil {
			return err
		}
		e.blockSpacing()
	}
	return nil
}

// paragraph wraps text to the column less indent and draws it.
func (e *Engine) paragraph(text string, f *typeset.Font, indent float64) error {
	lines, err := Wrap(text, f, e.ColumnWidth()-indent)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := e.line(line, f, indent); err != nil {
			return err
		}
	}
	return nil
}

// line draws one line at the cursor and advances it.
func (e *Engine) line(text string, f *typeset.Font, indent float64) error {
	if err := e.draw(text, f, indent); err != nil {
		return err
	}
	e.cursorY += f.Height() * e.LineHeight
	return nil
}

// draw places text at the cursor without advancing, starting a new page
// first when a line of f would cross the bottom margin.
func (e *Engine) draw(text string, f *typeset.Font, indent float64) error {
	if err := e.fit(f); err != nil {
		return err
	}
	if err := e.use(f); err != nil {
		return err
	}
	return e.s.DrawText(e.Margins.Left+indent, e.cursorY+f.Ascent(), text)
}

// fit starts a new page when a line of f no longer fits above the bottom
// margin.
func (e *Engine) fit(f *typeset.Font) error {
	step := f.Height() * e.LineHeight
	if e.cursorY+step > e.pageHeight-e.Margins.Bottom && e.cursorY > e.Margins.Top {
		if err := e.s.NewPage(); err != nil {
			return err
		}
		e.cursorY = e.Margins.Top
	}
	return nil
}

// blank advances the cursor by one empty line of f.
func (e *Engine) blank(f *typeset.Font) error {
	if err := e.fit(f); err != nil {
		return err
	}
	e.cursorY += f.Height() * e.LineHeight
	return nil
}

// verbatim draws a preformatted line as written. Leading white space is
// kept and tabs become four spaces; a line wider than the column is wrapped
// with its continuation lines aligned to the original indentation.
func (e *Engine) verbatim(text string) error {
	f := e.roman
	text = strings.ReplaceAll(strings.TrimRight(text, " \t\r\n"), "\t", "    ")
	if text == "" {
		return e.blank(f)
	}
	w, err := f.WidthOf(text)
	if err != nil {
		return err
	}
	if w <= e.ColumnWidth() {
		return e.line(text, f, 0)
	}
	body := strings.TrimLeft(text, " ")
	indent, err := f.WidthOf(text[:len(text)-len(body)])
	if err != nil {
		return err
	}
	if indent >= e.ColumnWidth() {
		indent = 0
	}
	return e.paragraph(body, f, indent)
}

// bullet draws marker at the left margin and text with a hanging indent.
// The marker shares its line with the first line of text.
func (e *Engine) bullet(marker, text string, f *typeset.Font) error {
	lines, err := Wrap(text, f, e.ColumnWidth()-e.ListIndent)
	if err != nil || len(lines) == 0 {
		return err
	}
	if err := e.draw(marker, f, 0); err != nil {
		return err
	}
	for _, l := range lines {
		if err := e.line(l, f, e.ListIndent); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) use(f *typeset.Font) error {
	if e.active == f {
		return nil
	}
	if err := e.s.SetFont(f); err != nil {
		return err
	}
	e.active = f
	return nil
}

func (e *Engine) blockSpacing() {
	e.cursorY += e.roman.Leading() * e.LineHeight
}

// headingFont scales the title font down for deeper heading levels.
func (e *Engine) headingFont(level int) (*typeset.Font, error) {
	if level <= 1 {
		return e.title, nil
	}
	scale := 0.65
	if level == 2 {
		scale = 0.8
	}
	size := e.title.Size() * scale
	if size < e.roman.Size() {
		size = e.roman.Size()
	}
	return e.s.NewFont(e.title.Family(), e.title.Style(), size)
}
