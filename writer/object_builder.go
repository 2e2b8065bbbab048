package writer

import (
	"sort"
	"strings"

	"github.com/wudi/pdfkern/ir/raw"
	"github.com/wudi/pdfkern/ir/semantic"
)

type objectBuilder struct {
	doc     *semantic.Document
	cfg     Config
	objects map[raw.ObjectRef]raw.Object
	objNum  int

	fontRefs map[*semantic.Font]raw.ObjectRef
}

func newObjectBuilder(doc *semantic.Document, cfg Config) *objectBuilder {
	return &objectBuilder{
		doc:      doc,
		cfg:      cfg,
		objects:  make(map[raw.ObjectRef]raw.Object),
		objNum:   1,
		fontRefs: make(map[*semantic.Font]raw.ObjectRef),
	}
}

func (b *objectBuilder) nextRef() raw.ObjectRef {
	ref := raw.ObjectRef{Num: b.objNum}
	b.objNum++
	return ref
}

// Build converts the document into indirect objects and returns them with
// the catalog reference and the optional Info reference.
func (b *objectBuilder) Build() (map[raw.ObjectRef]raw.Object, raw.ObjectRef, *raw.ObjectRef, error) {
	catalogRef := b.nextRef()
	pagesRef := b.nextRef()

	var infoRef *raw.ObjectRef
	if info := b.infoDict(); info != nil {
		ref := b.nextRef()
		infoRef = &ref
		b.objects[ref] = info
	}

	kids := raw.NewArray()
	for _, p := range b.doc.Pages {
		pageRef, err := b.addPage(p, pagesRef)
		if err != nil {
			return nil, raw.ObjectRef{}, nil, err
		}
		kids.Append(raw.Ref(pageRef))
	}

	pages := raw.Dict()
	pages.Set("Type", raw.Name("Pages"))
	pages.Set("Kids", kids)
	pages.Set("Count", raw.Int(int64(kids.Len())))
	b.objects[pagesRef] = pages

	catalog := raw.Dict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(pagesRef))
	b.objects[catalogRef] = catalog

	return b.objects, catalogRef, infoRef, nil
}

func (b *objectBuilder) infoDict() *raw.DictObj {
	info := b.doc.Info
	if info == nil {
		return nil
	}
	d := raw.Dict()
	set := func(key, val string) {
		if val != "" {
			d.Set(key, raw.Str(textString(val)))
		}
	}
	set("Title", info.Title)
	set("Author", info.Author)
	set("Subject", info.Subject)
	set("Creator", info.Creator)
	set("Producer", info.Producer)
	if len(info.Keywords) > 0 {
		set("Keywords", strings.Join(info.Keywords, ", "))
	}
	if d.Len() == 0 {
		return nil
	}
	return d
}

func (b *objectBuilder) addPage(p *semantic.Page, parent raw.ObjectRef) (raw.ObjectRef, error) {
	var content []byte
	for _, cs := range p.Contents {
		content = append(content, serializeContentStream(cs)...)
	}
	stream, err := b.stream(raw.Dict(), content)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	contentRef := b.nextRef()
	b.objects[contentRef] = stream

	fontRes := raw.Dict()
	if p.Resources != nil {
		names := make([]string, 0, len(p.Resources.Fonts))
		for name := range p.Resources.Fonts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref, err := b.ensureFont(p.Resources.Fonts[name])
			if err != nil {
				return raw.ObjectRef{}, err
			}
			fontRes.Set(name, raw.Ref(ref))
		}
	}
	res := raw.Dict()
	res.Set("ProcSet", raw.NewArray(raw.Name("PDF"), raw.Name("Text")))
	if fontRes.Len() > 0 {
		res.Set("Font", fontRes)
	}

	ref := b.nextRef()
	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	page.Set("Parent", raw.Ref(parent))
	page.Set("MediaBox", rectArray(p.MediaBox))
	page.Set("Resources", res)
	page.Set("Contents", raw.Ref(contentRef))
	b.objects[ref] = page
	return ref, nil
}

// stream builds a stream object, compressing the data when configured.
func (b *objectBuilder) stream(dict *raw.DictObj, data []byte) (*raw.StreamObj, error) {
	if b.cfg.Compression != 0 && len(data) > 0 {
		enc, err := flateEncode(data, b.cfg.Compression)
		if err != nil {
			return nil, err
		}
		dict.Set("Filter", raw.Name("FlateDecode"))
		data = enc
	}
	dict.Set("Length", raw.Int(int64(len(data))))
	return raw.NewStream(dict, data), nil
}

func (b *objectBuilder) ensureFont(font *semantic.Font) (raw.ObjectRef, error) {
	if ref, ok := b.fontRefs[font]; ok {
		return ref, nil
	}
	ref := b.nextRef()
	b.fontRefs[font] = ref

	encoding := font.Encoding
	if encoding == "" {
		encoding = "Identity-H"
	}
	fontDict := raw.Dict()
	fontDict.Set("Type", raw.Name("Font"))
	fontDict.Set("Subtype", raw.Name("Type0"))
	fontDict.Set("BaseFont", raw.Name(pdfNameLiteral(font.BaseFont)))
	fontDict.Set("Encoding", raw.Name(encoding))

	desc := font.DescendantFont
	if desc == nil {
		desc = &semantic.CIDFont{BaseFont: font.BaseFont, W: font.Widths, Descriptor: font.Descriptor}
	}
	descRef := b.nextRef()
	descDict := raw.Dict()
	descDict.Set("Type", raw.Name("Font"))
	subtype := desc.Subtype
	if subtype == "" {
		subtype = "CIDFontType2"
	}
	descDict.Set("Subtype", raw.Name(subtype))
	descDict.Set("BaseFont", raw.Name(pdfNameLiteral(font.BaseFont)))

	csi := desc.CIDSystemInfo
	if font.CIDSystemInfo != nil {
		csi = *font.CIDSystemInfo
	}
	if csi.Registry == "" {
		csi.Registry = "Adobe"
	}
	if csi.Ordering == "" {
		csi.Ordering = "Identity"
	}
	cs := raw.Dict()
	cs.Set("Registry", raw.Str([]byte(csi.Registry)))
	cs.Set("Ordering", raw.Str([]byte(csi.Ordering)))
	cs.Set("Supplement", raw.Int(int64(csi.Supplement)))
	descDict.Set("CIDSystemInfo", cs)

	dw := desc.DW
	if dw <= 0 {
		dw = 1000
	}
	descDict.Set("DW", raw.Int(int64(dw)))
	widths := desc.W
	if len(widths) == 0 {
		widths = font.Widths
	}
	if len(widths) > 0 {
		descDict.Set("W", encodeCIDWidths(widths))
	}
	descDict.Set("CIDToGIDMap", raw.Name("Identity"))

	fd := desc.Descriptor
	if fd == nil {
		fd = font.Descriptor
	}
	if fd != nil {
		fdRef, err := b.addFontDescriptor(fd)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		descDict.Set("FontDescriptor", raw.Ref(fdRef))
	}
	b.objects[descRef] = descDict
	fontDict.Set("DescendantFonts", raw.NewArray(raw.Ref(descRef)))

	if cmap := buildToUnicodeCMap(font); len(cmap) > 0 {
		stream, err := b.stream(raw.Dict(), cmap)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		uref := b.nextRef()
		b.objects[uref] = stream
		fontDict.Set("ToUnicode", raw.Ref(uref))
	}

	b.objects[ref] = fontDict
	return ref, nil
}

func (b *objectBuilder) addFontDescriptor(fd *semantic.FontDescriptor) (raw.ObjectRef, error) {
	ref := b.nextRef()
	d := raw.Dict()
	d.Set("Type", raw.Name("FontDescriptor"))
	name := fd.FontName
	if name == "" {
		name = "CustomFont"
	}
	d.Set("FontName", raw.Name(pdfNameLiteral(name)))
	flags := fd.Flags
	if flags == 0 {
		flags = 4
	}
	d.Set("Flags", raw.Int(int64(flags)))
	d.Set("ItalicAngle", raw.Real(fd.ItalicAngle))
	d.Set("Ascent", raw.Real(fd.Ascent))
	d.Set("Descent", raw.Real(fd.Descent))
	d.Set("CapHeight", raw.Real(fd.CapHeight))
	stem := fd.StemV
	if stem == 0 {
		stem = 80
	}
	d.Set("StemV", raw.Int(int64(stem)))
	d.Set("FontBBox", raw.NewArray(
		raw.Real(fd.FontBBox[0]),
		raw.Real(fd.FontBBox[1]),
		raw.Real(fd.FontBBox[2]),
		raw.Real(fd.FontBBox[3]),
	))
	if len(fd.FontFile) > 0 {
		sd := raw.Dict()
		sd.Set("Length1", raw.Int(int64(len(fd.FontFile))))
		stream, err := b.stream(sd, fd.FontFile)
		if err != nil {
			return raw.ObjectRef{}, err
		}
		streamRef := b.nextRef()
		b.objects[streamRef] = stream
		key := fd.FontFileType
		if key == "" {
			key = "FontFile2"
		}
		d.Set(key, raw.Ref(streamRef))
	}
	b.objects[ref] = d
	return ref, nil
}
