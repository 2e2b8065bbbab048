// Package typeset adapts a document backend to the primitives a
// typesetting engine needs: fonts with fixed-ratio metrics, width queries
// that leave the active font alone, text placement in points from the
// top-left corner, and serialization.
package typeset

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wudi/pdfkern/builder"
	"github.com/wudi/pdfkern/observability"
)

const mmPerPoint = 25.4 / 72

// Target is where Close puts the document.
type Target struct {
	path string
}

// ToFile writes the document to path on Close.
func ToFile(path string) Target { return Target{path: path} }

// InMemory returns the document from Close.
func InMemory() Target { return Target{} }

func (t Target) Path() string { return t.path }
func (t Target) IsMemory() bool { return t.path == "" }
func (t Target) String() string {
	if t.IsMemory() {
		return "memory"
	}
	return t.path
}

// LoadedFont records how a font file was registered.
type LoadedFont struct {
	Family string
	Style  Style
}

// FontSpec requests a font under a logical name. Family is informational;
// every spec resolves to the session family.
type FontSpec struct {
	Name   string
	Family string
	Style  string
	Size   float64
}

// Session owns one backend document for the lifetime of a render job. All
// access to the backend goes through the session's lock, so fonts of one
// session may be measured from several goroutines.
type Session struct {
	mu      sync.Mutex
	backend Backend
	target  Target
	opts    options
	log     observability.Logger

	widthPt, heightPt float64

	loaded  map[string]LoadedFont
	fonts   map[string]*Font
	current *Font
	closed  bool
}

// New starts a session with one empty page of widthPt by heightPt points.
func New(target Target, widthPt, heightPt float64, opts ...Option) (*Session, error) {
	if !(widthPt > 0) || !(heightPt > 0) || math.IsInf(widthPt, 0) || math.IsInf(heightPt, 0) {
		return nil, fmt.Errorf("%w: page size %vx%v", ErrInvalidArgument, widthPt, heightPt)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := o.backend
	if b == nil {
		doc, err := builder.New(builder.Config{
			Unit:          "pt",
			Width:         widthPt,
			Height:        heightPt,
			Compression:   o.compression,
			Deterministic: o.deterministic,
			Info:          o.info,
			Shaping:       o.shaping,
			Logger:        o.logger,
		})
		if err != nil {
			return nil, err
		}
		b = doc
	}
	b.SetAutoPageBreak(false, 0)
	b.AddPage()

	s := &Session{
		backend:  b,
		target:   target,
		opts:     o,
		log:      o.logger.With(observability.String("target", target.String())),
		widthPt:  widthPt,
		heightPt: heightPt,
		loaded:   make(map[string]LoadedFont),
		fonts:    make(map[string]*Font),
	}
	s.log.Debug("session started",
		observability.Float64("width_pt", widthPt),
		observability.Float64("height_pt", heightPt),
		observability.Bool("custom_backend", o.backend != nil))
	return s, nil
}

// LoadFont registers a font file with the backend under the session family.
// The style comes from the file name without its extension.
func (s *Session) LoadFont(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("stat font %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	// Style follows the name the caller used; a symlinked GenBasI.ttf is
	// Italic whatever its target is called.
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	style := s.opts.fileRules.Classify(stem)
	key := canonicalPath(path)

	if err := s.backend.AddFont(s.opts.family, style.Code(), key); err != nil {
		s.log.Warn("font rejected",
			observability.String("path", key),
			observability.Error("error", err))
		return err
	}
	s.loaded[key] = LoadedFont{Family: s.opts.family, Style: style}
	s.log.Info("font loaded",
		observability.String("path", key),
		observability.String("family", s.opts.family),
		observability.String("style", style.String()))
	return nil
}

func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// ResolveFonts builds one font per spec and replaces the stored mapping.
// Nothing is stored when a spec is invalid.
func (s *Session) ResolveFonts(specs []FontSpec) (map[string]*Font, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	resolved := make(map[string]*Font, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: font spec without a name", ErrInvalidArgument)
		}
		f, err := NewFont(s, s.opts.family, s.opts.nameRules.Classify(spec.Style), spec.Size)
		if err != nil {
			return nil, fmt.Errorf("font %q: %w", spec.Name, err)
		}
		resolved[spec.Name] = f
	}
	s.fonts = resolved
	s.log.Debug("fonts resolved", observability.Int("count", len(resolved)))
	return copyFonts(resolved), nil
}

// NewFont returns a font measured through this session without adding it
// to the stored mapping. Unlike ResolveFonts, family is used as given.
func (s *Session) NewFont(family string, style Style, size float64) (*Font, error) {
	return NewFont(s, family, style, size)
}

// MeasureWidth implements Measurer for fonts of this session.
func (s *Session) MeasureWidth(family string, style Style, size float64, text string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return measure(s.backend, family, style, size, text)
}

// NewPage appends a page; later DrawText calls draw on it.
func (s *Session) NewPage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.backend.AddPage()
	s.log.Debug("page added", observability.Int("page", s.backend.PageCount()))
	return nil
}

// SetFont makes f the active font for DrawText.
func (s *Session) SetFont(f *Font) error {
	if f == nil {
		return fmt.Errorf("%w: nil font", ErrInvalidArgument)
	}
	if f.m != Measurer(s) {
		return fmt.Errorf("%w: font %s belongs to another session", ErrInvalidArgument, f)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.backend.SetFont(f.family, f.style.Code(), f.size); err != nil {
		return fmt.Errorf("set font %s: %w", f, err)
	}
	s.current = f
	return nil
}

// DrawText places text on the current page. x and y are points from the
// top-left corner and y is the baseline.
func (s *Session) DrawText(xPt, yPt float64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.current == nil {
		return ErrNoActiveFont
	}
	return s.backend.Text(xPt, yPt, text)
}

// Close serializes the document. A file target is written and nil is
// returned; an in-memory target returns the bytes. After a successful Close
// the session cannot be used; after a failed one it stays open and Close
// may be retried.
func (s *Session) Close() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var buf bytes.Buffer
	if err := s.backend.Output(&buf); err != nil {
		s.log.Error("serialize failed", observability.Error("error", err))
		return nil, fmt.Errorf("serialize: %w", err)
	}
	if s.target.IsMemory() {
		s.closed = true
		s.log.Info("document closed", observability.Int("bytes", buf.Len()))
		return buf.Bytes(), nil
	}
	if err := os.WriteFile(s.target.path, buf.Bytes(), 0o644); err != nil {
		s.log.Error("write failed", observability.Error("error", err))
		return nil, fmt.Errorf("write %s: %w", s.target.path, err)
	}
	s.closed = true
	s.log.Info("document closed",
		observability.String("path", s.target.path),
		observability.Int("bytes", buf.Len()))
	return nil, nil
}

// Fonts returns a copy of the mapping stored by the last ResolveFonts.
func (s *Session) Fonts() map[string]*Font {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFonts(s.fonts)
}

// Font looks up a resolved font by logical name.
func (s *Session) Font(name string) (*Font, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fonts[name]
	return f, ok
}

// LoadedFonts returns a copy of the font file registry.
func (s *Session) LoadedFonts() map[string]LoadedFont {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]LoadedFont, len(s.loaded))
	for k, v := range s.loaded {
		out[k] = v
	}
	return out
}

// Current returns the active font, or nil.
func (s *Session) Current() *Font {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.PageCount()
}

// PageSize returns the page size in points.
func (s *Session) PageSize() (widthPt, heightPt float64) { return s.widthPt, s.heightPt }

// PageSizeMM returns the page size in millimetres.
func (s *Session) PageSizeMM() (widthMM, heightMM float64) {
	return s.widthPt * mmPerPoint, s.heightPt * mmPerPoint
}

// Family returns the family identifier fonts are registered under.
func (s *Session) Family() string { return s.opts.family }

func (s *Session) Target() Target { return s.target }

func copyFonts(in map[string]*Font) map[string]*Font {
	out := make(map[string]*Font, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
