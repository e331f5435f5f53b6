package domain

// Rich-text block types understood by the renderer and the word counter.
const (
	NodeParagraph    = "paragraph"
	NodeHeading1     = "heading1"
	NodeHeading2     = "heading2"
	NodeHeading3     = "heading3"
	NodeHeading4     = "heading4"
	NodeHeading5     = "heading5"
	NodeHeading6     = "heading6"
	NodePreformatted = "preformatted"
	NodeListItem     = "list-item"
	NodeOListItem    = "o-list-item"
	NodeImage        = "image"
	NodeEmbed        = "embed"
)

// Inline span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// RichText is a structured document made of ordered block nodes.
type RichText []RichTextNode

// RichTextNode is a single block of a rich-text document.
// Text-bearing blocks carry Text and inline Spans; image and embed blocks carry URL data only.
// Children holds nested blocks for grouping nodes (such as a list built from list items).
type RichTextNode struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Spans    []Span         `json:"spans,omitempty"`
	URL      string         `json:"url,omitempty"`
	Alt      string         `json:"alt,omitempty"`
	Children []RichTextNode `json:"children,omitempty"`
}

// Span marks a formatted rune range [Start, End) of a node's text.
// URL is only set for hyperlinks.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
}
