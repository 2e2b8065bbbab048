// Package semantic is the document model the builder produces and the
// writer serializes: pages with content operations and the fonts they use.
package semantic

// Document is a complete document ready for serialization.
type Document struct {
	Pages []*Page
	Info  *DocumentInfo
}

// DocumentInfo populates the Info dictionary.
type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
	Keywords []string
}

// Page is a single page. MediaBox is in PDF user space (points, bottom-left origin).
type Page struct {
	Index     int
	MediaBox  Rectangle
	Resources *Resources
	Contents  []ContentStream
}

// Rectangle is a PDF rectangle.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width returns URX-LLX.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height returns URY-LLY.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Resources holds the resources a page's content refers to by name.
type Resources struct {
	Fonts map[string]*Font
}

// ContentStream is a sequence of content operations.
type ContentStream struct {
	Operations []Operation
}

// Operation represents a PDF operator and operands.
type Operation struct {
	Operator string
	Operands []Operand
}

// Operand is a type-safe operand value.
type Operand interface {
	operand()
	Type() string
}

type NumberOperand struct{ Value float64 }

func (NumberOperand) operand()     {}
func (NumberOperand) Type() string { return "number" }

type NameOperand struct{ Value string }

func (NameOperand) operand()     {}
func (NameOperand) Type() string { return "name" }

// StringOperand is written as a literal string, or as a hex string when Hex is set.
type StringOperand struct {
	Value []byte
	Hex   bool
}

func (StringOperand) operand()     {}
func (StringOperand) Type() string { return "string" }

type ArrayOperand struct{ Values []Operand }

func (ArrayOperand) operand()     {}
func (ArrayOperand) Type() string { return "array" }

// Font is a Type0 font with an Identity-H encoding over an embedded
// TrueType descendant. Codes are glyph IDs.
type Font struct {
	Subtype        string // Type0
	BaseFont       string
	Encoding       string
	Widths         map[int]int // glyph ID -> width in 1/1000 em
	ToUnicode      map[int][]rune
	CIDSystemInfo  *CIDSystemInfo
	DescendantFont *CIDFont
	Descriptor     *FontDescriptor
}

// CIDSystemInfo describes the registry/ordering of a CID font.
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

// CIDFont describes a descendant font for Type0 fonts.
type CIDFont struct {
	Subtype       string // CIDFontType2
	BaseFont      string
	CIDSystemInfo CIDSystemInfo
	DW            int
	W             map[int]int
	Descriptor    *FontDescriptor
}

// FontDescriptor carries metrics and the embedded font file.
type FontDescriptor struct {
	FontName     string
	Flags        int
	ItalicAngle  float64
	Ascent       float64
	Descent      float64
	CapHeight    float64
	StemV        int
	FontBBox     [4]float64
	FontFile     []byte
	FontFileType string // FontFile2
}
