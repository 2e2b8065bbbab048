package typeset

import (
	"github.com/wudi/pdfkern/ir/semantic"
	"github.com/wudi/pdfkern/observability"
)

// DefaultFamily is the family every loaded font file is registered under.
const DefaultFamily = "GentiumBasic"

type options struct {
	family        string
	fileRules     Rules
	nameRules     Rules
	info          *semantic.DocumentInfo
	compression   int
	deterministic bool
	shaping       bool
	logger        observability.Logger
	backend       Backend
}

// Option configures a Session.
type Option func(*options)

func defaultOptions() options {
	return options{
		family:    DefaultFamily,
		fileRules: FilenameSuffixRules(),
		nameRules: StyleNameRules(),
		logger:    observability.NopLogger{},
	}
}

// WithFamily sets the family identifier fonts are registered and resolved
// under.
func WithFamily(family string) Option {
	return func(o *options) {
		if family != "" {
			o.family = family
		}
	}
}

// WithFilenameRules sets the rules LoadFont applies to file stems.
func WithFilenameRules(r Rules) Option {
	return func(o *options) { o.fileRules = r }
}

// WithStyleNameRules sets the rules ResolveFonts applies to style names.
func WithStyleNameRules(r Rules) Option {
	return func(o *options) { o.nameRules = r }
}

// WithInfo fills the document information dictionary.
func WithInfo(info semantic.DocumentInfo) Option {
	return func(o *options) { o.info = &info }
}

// WithCompression sets the Flate level for content and font streams.
func WithCompression(level int) Option {
	return func(o *options) { o.compression = level }
}

// WithDeterministic makes identical sessions produce identical bytes.
func WithDeterministic() Option {
	return func(o *options) { o.deterministic = true }
}

// WithShaping measures text with HarfBuzz shaping.
func WithShaping() Option {
	return func(o *options) { o.shaping = true }
}

func WithLogger(l observability.Logger) Option {
	return func(o *options) { o.logger = observability.OrNop(l) }
}

// WithBackend drives b instead of a new document. b must already use
// points and the intended page size; the session still disables automatic
// page breaks and adds the first page.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}
