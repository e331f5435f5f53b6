package application

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

type relativeLinkTransformer struct {
	siteURL string
}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		link, linkOk := n.(*ast.Link)
		img, imgOk := n.(*ast.Image)
		if !linkOk && !imgOk {
			return ast.WalkContinue, nil
		}

		dest := ""
		if linkOk {
			dest = string(link.Destination)
		} else if imgOk {
			dest = string(img.Destination)
		}

		if dest == "" || strings.HasPrefix(dest, "#") || !isRelativeLink(dest) {
			return ast.WalkContinue, nil
		}

		abs := []byte(t.siteURL + path.Clean("/"+dest))
		if imgOk {
			img.Destination = abs
		} else {
			link.Destination = abs
		}

		return ast.WalkContinue, nil
	})
}

func isRelativeLink(dest string) bool {
	// Absolute path check
	if strings.HasPrefix(dest, "/") {
		if strings.HasPrefix(dest, "//") {
			return false
		}
		return true
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	if strings.Contains(dest, ":") {
		return false
	}

	return true
}

// RichTextRenderer converts a rich-text body into HTML.
type RichTextRenderer interface {
	Render(rt domain.RichText) (string, error)
}

// HTMLRenderer renders rich text through goldmark. The document tree is built
// straight from the rich-text nodes, so CMS text is never parsed as Markdown.
type HTMLRenderer struct {
	renderer renderer.Renderer
	links    *relativeLinkTransformer
}

// NewHTMLRenderer builds a renderer that rewrites relative links onto siteURL.
func NewHTMLRenderer(siteURL string) *HTMLRenderer {
	md := goldmark.New(
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	return &HTMLRenderer{
		renderer: md.Renderer(),
		links:    &relativeLinkTransformer{siteURL: strings.TrimRight(siteURL, "/")},
	}
}

func (r *HTMLRenderer) Render(rt domain.RichText) (string, error) {
	b := &documentBuilder{doc: ast.NewDocument()}
	b.appendNodes(b.doc, rt)
	r.links.Transform(b.doc, text.NewReader(b.source), parser.NewContext())

	var buf bytes.Buffer
	if err := r.renderer.Render(&buf, b.source, b.doc); err != nil {
		return "", fmt.Errorf("failed to convert rich text to HTML: %w", err)
	}
	return buf.String(), nil
}

// documentBuilder turns rich-text nodes into a goldmark document.
// source only backs preformatted blocks; inline text is carried by the nodes.
type documentBuilder struct {
	doc    *ast.Document
	source []byte
}

func (b *documentBuilder) appendNodes(parent ast.Node, nodes []domain.RichTextNode) {
	var list *ast.List
	for _, n := range nodes {
		if !isListItem(n.Type) {
			list = nil
		}

		switch n.Type {
		case domain.NodeHeading1, domain.NodeHeading2, domain.NodeHeading3,
			domain.NodeHeading4, domain.NodeHeading5, domain.NodeHeading6:
			h := ast.NewHeading(int(n.Type[len(n.Type)-1] - '0'))
			appendInline(h, n.Text, n.Spans)
			parent.AppendChild(parent, h)
		case domain.NodePreformatted:
			parent.AppendChild(parent, b.codeBlock(n.Text))
		case domain.NodeListItem, domain.NodeOListItem:
			// consecutive items of the same kind form one list
			marker := byte('-')
			if n.Type == domain.NodeOListItem {
				marker = '.'
			}
			if list == nil || list.Marker != marker {
				list = ast.NewList(marker)
				list.Start = 1
				parent.AppendChild(parent, list)
			}
			block := ast.NewTextBlock()
			appendInline(block, n.Text, n.Spans)
			item := ast.NewListItem(2)
			item.AppendChild(item, block)
			list.AppendChild(list, item)
		case domain.NodeImage:
			if n.URL != "" {
				link := ast.NewLink()
				link.Destination = []byte(n.URL)
				if n.Alt != "" {
					link.AppendChild(link, rawString(n.Alt))
				}
				appendParagraph(parent, ast.NewImage(link))
			}
		case domain.NodeEmbed:
			if n.URL != "" {
				link := ast.NewLink()
				link.Destination = []byte(n.URL)
				link.AppendChild(link, rawString(n.URL))
				appendParagraph(parent, link)
			}
		default:
			if n.Text != "" {
				p := ast.NewParagraph()
				appendInline(p, n.Text, n.Spans)
				parent.AppendChild(parent, p)
			}
		}

		if len(n.Children) > 0 {
			b.appendNodes(parent, n.Children)
			list = nil
		}
	}
}

func (b *documentBuilder) codeBlock(s string) *ast.CodeBlock {
	cb := ast.NewCodeBlock()
	if s == "" {
		return cb
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	start := len(b.source)
	b.source = append(b.source, s...)
	cb.Lines().Append(text.NewSegment(start, len(b.source)))
	return cb
}

func appendParagraph(parent ast.Node, child ast.Node) {
	p := ast.NewParagraph()
	p.AppendChild(p, child)
	parent.AppendChild(parent, p)
}

func isListItem(nodeType string) bool {
	return nodeType == domain.NodeListItem || nodeType == domain.NodeOListItem
}

type openSpan struct {
	index int
	node  ast.Node
}

// appendInline appends the text of a node to parent, wrapping formatted rune
// ranges in emphasis and link nodes. Overlapping spans are split so the result
// nests properly. Spans with out-of-range offsets are ignored.
func appendInline(parent ast.Node, s string, spans []domain.Span) {
	runes := []rune(s)
	active := renderableSpans(spans, len(runes))

	cuts := []int{0, len(runes)}
	for _, sp := range active {
		cuts = append(cuts, sp.Start, sp.End)
	}
	sort.Ints(cuts)
	cuts = slices.Compact(cuts)

	var stack []openSpan
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]

		var covering []int
		for idx, sp := range active {
			if sp.Start <= from && sp.End >= to {
				covering = append(covering, idx)
			}
		}

		keep := 0
		for keep < len(stack) && keep < len(covering) && stack[keep].index == covering[keep] {
			keep++
		}
		stack = stack[:keep]

		for _, idx := range covering[keep:] {
			node := spanNode(active[idx])
			container := topOf(parent, stack)
			container.AppendChild(container, node)
			stack = append(stack, openSpan{index: idx, node: node})
		}

		appendText(topOf(parent, stack), string(runes[from:to]))
	}
}

func topOf(parent ast.Node, stack []openSpan) ast.Node {
	if len(stack) == 0 {
		return parent
	}
	return stack[len(stack)-1].node
}

// renderableSpans keeps the spans that map to an inline node, ordered so that
// wider spans opening at the same offset enclose narrower ones.
func renderableSpans(spans []domain.Span, length int) []domain.Span {
	out := make([]domain.Span, 0, len(spans))
	for _, sp := range spans {
		if sp.Start < 0 || sp.End > length || sp.Start >= sp.End {
			continue
		}
		if spanNode(sp) == nil {
			continue
		}
		out = append(out, sp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})
	return out
}

func spanNode(sp domain.Span) ast.Node {
	switch sp.Type {
	case domain.SpanStrong:
		return ast.NewEmphasis(2)
	case domain.SpanEm:
		return ast.NewEmphasis(1)
	case domain.SpanHyperlink:
		if sp.URL == "" {
			return nil
		}
		link := ast.NewLink()
		link.Destination = []byte(sp.URL)
		return link
	}
	return nil
}

// appendText adds s as escaped text, turning newlines into line breaks.
func appendText(parent ast.Node, s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			br := ast.NewString([]byte("<br />\n"))
			br.SetCode(true)
			parent.AppendChild(parent, br)
		}
		if line != "" {
			parent.AppendChild(parent, rawString(line))
		}
	}
}

// rawString is text written out HTML-escaped, with no Markdown unescaping.
func rawString(s string) *ast.String {
	str := ast.NewString([]byte(s))
	str.SetRaw(true)
	return str
}
