package layout

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/pdfkern/typeset"
)

// RenderHTML renders an HTML string. Block elements become paragraphs;
// inline markup is flattened to its text.
func (e *Engine) RenderHTML(source string) error {
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return err
	}
	return e.walkHTML(doc)
}

func (e *Engine) walkHTML(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		if t := collapse(n.Data); t != "" {
			return e.htmlBlock(t, e.roman, 0)
		}
		return nil
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style:
			return nil
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			f, err := e.headingFont(int(n.Data[1] - '0'))
			if err != nil {
				return err
			}
			return e.htmlBlock(extractText(n), f, 0)
		case atom.P:
			f := e.roman
			if onlyChild(n, atom.Em, atom.I) {
				f = e.italic
			}
			return e.htmlBlock(extractText(n), f, 0)
		case atom.Blockquote:
			return e.htmlBlock(extractText(n), e.italic, e.ListIndent)
		case atom.Pre:
			return e.renderHTMLPre(n)
		case atom.Ul, atom.Ol:
			return e.renderHTMLList(n)
		case atom.Hr:
			e.blockSpacing()
			return nil
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := e.walkHTML(c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) htmlBlock(text string, f *typeset.Font, indent float64) error {
	if text == "" {
		return nil
	}
	if err := e.paragraph(text, f, indent); err != nil {
		return err
	}
	e.blockSpacing()
	return nil
}

func (e *Engine) renderHTMLList(n *html.Node) error {
	num := 1
	if n.DataAtom == atom.Ol {
		for _, a := range n.Attr {
			if a.Key == "start" {
				if v, err := strconv.Atoi(a.Val); err == nil {
					num = v
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		marker := "•"
		if n.DataAtom == atom.Ol {
			marker = strconv.Itoa(num) + "."
			num++
		}
		if err := e.bullet(marker, extractText(c), e.roman); err != nil {
			return err
		}
	}
	e.blockSpacing()
	return nil
}

func (e *Engine) renderHTMLPre(n *html.Node) error {
	var sb strings.Builder
	rawText(n, &sb)
	for _, line := range strings.Split(strings.Trim(sb.String(), "\n"), "\n") {
		if err := e.verbatim(line); err != nil {
			return err
		}
	}
	e.blockSpacing()
	return nil
}

// onlyChild reports whether n has exactly one non-blank child and it is one
// of the given elements.
func onlyChild(n *html.Node, atoms ...atom.Atom) bool {
	var found *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		if found != nil {
			return false
		}
		found = c
	}
	if found == nil || found.Type != html.ElementNode {
		return false
	}
	for _, a := range atoms {
		if found.DataAtom == a {
			return true
		}
	}
	return false
}

func extractText(n *html.Node) string {
	var sb strings.Builder
	rawText(n, &sb)
	return collapse(sb.String())
}

func rawText(n *html.Node, sb *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		sb.WriteString(n.Data)
	case n.Type == html.ElementNode && n.DataAtom == atom.Br:
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rawText(c, sb)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
