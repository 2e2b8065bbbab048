// Package writer serializes semantic documents into PDF files.
package writer

import (
	"context"
	"io"

	"github.com/wudi/pdfkern/ir/raw"
	"github.com/wudi/pdfkern/ir/semantic"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

// Config controls serialization.
type Config struct {
	Version PDFVersion
	// Compression is the Flate level for content and font streams. Zero
	// writes streams uncompressed.
	Compression int
	// Deterministic derives the file ID from the document instead of
	// random bytes, so identical documents serialize identically.
	Deterministic bool
}

// Writer serializes a document.
type Writer interface {
	Write(ctx context.Context, doc *semantic.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte
}

// NewWriter returns the default writer.
func NewWriter() Writer { return &impl{} }
