package prismic

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/rs/zerolog/log"
)

// DateLayout is the timestamp format of first_publication_date.
const DateLayout = "2006-01-02T15:04:05-0700"

type apiInfo struct {
	Refs []apiRef `json:"refs"`
}

type apiRef struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type searchResponse struct {
	Page      int        `json:"page"`
	TotalPage int        `json:"total_pages"`
	NextPage  *string    `json:"next_page"`
	Results   []document `json:"results"`
}

type document struct {
	ID                   string       `json:"id"`
	UID                  string       `json:"uid"`
	Type                 string       `json:"type"`
	FirstPublicationDate *string      `json:"first_publication_date"`
	Data                 documentData `json:"data"`
}

type documentData struct {
	Title    textField     `json:"title"`
	Subtitle textField     `json:"subtitle"`
	Author   textField     `json:"author"`
	Banner   imageField    `json:"banner"`
	Content  []contentItem `json:"content"`
}

type contentItem struct {
	Heading textField         `json:"heading"`
	Body    []json.RawMessage `json:"body"`
}

type imageField struct {
	URL        string `json:"url"`
	Alt        string `json:"alt"`
	Dimensions struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"dimensions"`
}

// textField accepts a key-text string or a rich-text array, which a title field may be
// depending on how the custom type was modelled.
type textField string

func (f *textField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = textField(s)
		return nil
	}

	var nodes []json.RawMessage
	if err := json.Unmarshal(b, &nodes); err != nil {
		// Anything else is treated as absent and caught by the normalizer.
		*f = ""
		return nil
	}
	parts := make([]string, 0, len(nodes))
	for _, n := range decodeRichText(nodes) {
		if n.Text != "" {
			parts = append(parts, n.Text)
		}
	}
	*f = textField(strings.Join(parts, " "))
	return nil
}

type richTextNode struct {
	Type   string     `json:"type"`
	Text   string     `json:"text"`
	Spans  []wireSpan `json:"spans"`
	URL    string     `json:"url"`
	Alt    string     `json:"alt"`
	Oembed struct {
		EmbedURL string `json:"embed_url"`
	} `json:"oembed"`
}

type wireSpan struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  linkData `json:"data"`
}

type linkData struct {
	LinkType string `json:"link_type"`
	URL      string `json:"url"`
	UID      string `json:"uid"`
	Type     string `json:"type"`
}

// decodeRichText decodes each node on its own. A node that does not decode becomes an
// empty paragraph so the rest of the body survives.
func decodeRichText(raw []json.RawMessage) domain.RichText {
	nodes := make(domain.RichText, 0, len(raw))
	for i, r := range raw {
		var n richTextNode
		if err := json.Unmarshal(r, &n); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping undecodable rich text node")
			nodes = append(nodes, domain.RichTextNode{Type: domain.NodeParagraph})
			continue
		}
		nodes = append(nodes, n.toDomain())
	}
	return nodes
}

func (n richTextNode) toDomain() domain.RichTextNode {
	node := domain.RichTextNode{
		Type: n.Type,
		Text: n.Text,
	}
	switch n.Type {
	case domain.NodeImage:
		node.URL = n.URL
		node.Alt = n.Alt
	case domain.NodeEmbed:
		node.URL = n.Oembed.EmbedURL
	}

	for _, s := range n.Spans {
		span := domain.Span{Start: s.Start, End: s.End, Type: s.Type}
		if s.Type == domain.SpanHyperlink {
			span.URL = resolveLink(s.Data)
		}
		node.Spans = append(node.Spans, span)
	}
	return node
}

// resolveLink maps a link to a URL; document links point at the post page of the target.
func resolveLink(d linkData) string {
	if d.LinkType == "Document" {
		if d.UID == "" {
			return ""
		}
		if d.Type == "" || d.Type == domain.PostType {
			return "/post/" + d.UID
		}
		return "/" + d.Type + "/" + d.UID
	}
	return d.URL
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		// Some repositories emit RFC 3339 offsets with a colon.
		if t, err = time.Parse(time.RFC3339, *s); err != nil {
			log.Warn().Err(err).Str("value", *s).Msg("Ignoring unparseable publication date")
			return nil
		}
	}
	return &t
}

func (d document) toDomain() domain.RawPost {
	content := make([]domain.ContentBlock, 0, len(d.Data.Content))
	for _, c := range d.Data.Content {
		content = append(content, domain.ContentBlock{
			Heading: string(c.Heading),
			Body:    decodeRichText(c.Body),
		})
	}

	return domain.RawPost{
		ID:                   d.ID,
		UID:                  d.UID,
		Type:                 d.Type,
		FirstPublicationDate: parseDate(d.FirstPublicationDate),
		Data: domain.RawPostData{
			Title:    string(d.Data.Title),
			Subtitle: string(d.Data.Subtitle),
			Author:   string(d.Data.Author),
			Banner: domain.Image{
				URL:    d.Data.Banner.URL,
				Alt:    d.Data.Banner.Alt,
				Width:  d.Data.Banner.Dimensions.Width,
				Height: d.Data.Banner.Dimensions.Height,
			},
			Content: content,
		},
	}
}

func (r searchResponse) toPage() domain.Page {
	page := domain.Page{Results: make([]domain.RawPost, 0, len(r.Results))}
	for _, d := range r.Results {
		page.Results = append(page.Results, d.toDomain())
	}
	if r.NextPage != nil {
		page.NextPage = *r.NextPage
	}
	return page
}
