package layout

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RenderMarkdown renders a markdown string using goldmark.
func (e *Engine) RenderMarkdown(source string) error {
	md := goldmark.New()
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))
	return e.walkMarkdown(doc, src)
}

func (e *Engine) walkMarkdown(node ast.Node, source []byte) error {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		var err error
		switch n := child.(type) {
		case *ast.Heading:
			err = e.renderMarkdownHeading(n, source)
		case *ast.Paragraph, *ast.TextBlock:
			err = e.renderMarkdownParagraph(n, source, 0)
		case *ast.List:
			err = e.renderMarkdownList(n, source)
		case *ast.Blockquote:
			err = e.renderMarkdownQuote(n, source)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			err = e.renderMarkdownCode(n, source)
		case *ast.ThematicBreak:
			e.blockSpacing()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) renderMarkdownHeading(n *ast.Heading, source []byte) error {
	f, err := e.headingFont(n.Level)
	if err != nil {
		return err
	}
	if err := e.paragraph(inlineText(n, source), f, 0); err != nil {
		return err
	}
	e.blockSpacing()
	return nil
}

// renderMarkdownParagraph draws a paragraph. A paragraph that is entirely
// emphasis uses the italic font.
func (e *Engine) renderMarkdownParagraph(n ast.Node, source []byte, indent float64) error {
	f := e.roman
	if c := n.FirstChild(); c != nil && c.NextSibling() == nil && c.Kind() == ast.KindEmphasis {
		f = e.italic
	}
	if err := e.paragraph(inlineText(n, source), f, indent); err != nil {
		return err
	}
	e.blockSpacing()
	return nil
}

func (e *Engine) renderMarkdownList(n *ast.List, source []byte) error {
	num := n.Start
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "•"
		if n.IsOrdered() {
			marker = strconv.Itoa(num) + string(n.Marker)
			num++
		}
		var sb strings.Builder
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(inlineText(c, source))
		}
		if err := e.bullet(marker, sb.String(), e.roman); err != nil {
			return err
		}
	}
	e.blockSpacing()
	return nil
}

func (e *Engine) renderMarkdownQuote(n *ast.Blockquote, source []byte) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := e.paragraph(inlineText(c, source), e.italic, e.ListIndent); err != nil {
			return err
		}
	}
	e.blockSpacing()
	return nil
}

// renderMarkdownCode draws code blocks line by line as written.
func (e *Engine) renderMarkdownCode(n ast.Node, source []byte) error {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if err := e.verbatim(string(seg.Value(source))); err != nil {
			return err
		}
	}
	e.blockSpacing()
	return nil
}

// inlineText flattens the inline children of n into one string.
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
			return
		case *ast.String:
			sb.Write(t.Value)
			return
		case *ast.AutoLink:
			sb.Write(t.Label(source))
			return
		case *ast.RawHTML:
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
