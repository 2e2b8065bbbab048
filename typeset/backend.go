package typeset

import (
	"fmt"
	"io"
	"sync"
)

// Backend is the document generator a Session drives. Styles are the codes
// returned by Style.Code. Widths are in the backend's user unit, which a
// Session configures as points.
type Backend interface {
	AddPage()
	PageCount() int
	SetAutoPageBreak(auto bool, margin float64)
	AddFont(family, style, path string) error
	SetFont(family, style string, size float64) error
	CurrentFont() (family, style string, size float64, ok bool)
	StringWidth(text string) float64
	Text(x, y float64, text string) error
	Output(w io.Writer) error
}

// StatelessMeasurer is implemented by backends that can measure a string
// in a given font without selecting it.
type StatelessMeasurer interface {
	MeasureString(family, style string, size float64, text string) (float64, error)
}

// Measurer measures text for a Font. A Font never holds a Backend directly.
type Measurer interface {
	MeasureWidth(family string, style Style, size float64, text string) (float64, error)
}

type backendMeasurer struct {
	mu sync.Mutex
	b  Backend
}

// BackendMeasurer returns a Measurer over a caller-configured backend. Calls
// through it are serialized; other users of b are not.
func BackendMeasurer(b Backend) Measurer {
	return &backendMeasurer{b: b}
}

func (m *backendMeasurer) MeasureWidth(family string, style Style, size float64, text string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return measure(m.b, family, style, size, text)
}

// measure returns the width of text without changing the font b reports as
// active. Stateless measurement is used when b offers it. Otherwise the
// font is switched for the query and switched back on every return path;
// with no previous font there is nothing to restore to, so the measured
// font stays selected.
func measure(b Backend, family string, style Style, size float64, text string) (width float64, err error) {
	if text == "" {
		return 0, nil
	}
	if sm, ok := b.(StatelessMeasurer); ok {
		return sm.MeasureString(family, style.Code(), size, text)
	}

	prevFamily, prevStyle, prevSize, hadFont := b.CurrentFont()
	// Backend has no call that clears the active font, so without a previous
	// one the measured font is left selected. Session.Current still reports
	// no font and DrawText keeps failing with ErrNoActiveFont.
	if hadFont {
		defer func() {
			if rerr := b.SetFont(prevFamily, prevStyle, prevSize); rerr != nil && err == nil {
				width, err = 0, fmt.Errorf("restore font %s %q %v: %w", prevFamily, prevStyle, prevSize, rerr)
			}
		}()
	}
	if err := b.SetFont(family, style.Code(), size); err != nil {
		return 0, err
	}
	return b.StringWidth(text), nil
}
