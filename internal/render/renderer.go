package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// DefaultSiteTitle is used when no title is configured.
	DefaultSiteTitle = "spacetraveling"

	pageIndex    = "index.html"
	pagePost     = "post.html"
	pageNotFound = "notfound.html"
	pageLoading  = "loading.html"
)

// BodyRenderer converts a rich-text body into HTML.
type BodyRenderer interface {
	Render(rt domain.RichText) (string, error)
}

// Renderer writes the HTML pages and the RSS feed of the site.
type Renderer struct {
	siteURL   string
	siteTitle string
	body      BodyRenderer
	templates map[string]*template.Template
}

type RendererOption func(*Renderer)

func WithSiteTitle(title string) RendererOption {
	return func(r *Renderer) {
		if strings.TrimSpace(title) != "" {
			r.siteTitle = title
		}
	}
}

// NewRenderer parses every page template up front so a broken template fails at startup.
func NewRenderer(siteURL string, body BodyRenderer, opts ...RendererOption) (*Renderer, error) {
	r := &Renderer{
		siteURL:   strings.TrimRight(siteURL, "/"),
		siteTitle: DefaultSiteTitle,
		body:      body,
		templates: make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, page := range []string{pageIndex, pagePost, pageNotFound, pageLoading} {
		t, err := template.New("").Funcs(template.FuncMap{
			"formatDate": FormatPublicationDate,
		}).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		r.templates[page] = t
	}
	return r, nil
}

type pageData struct {
	SiteURL   string
	SiteTitle string
}

type indexData struct {
	pageData
	Posts    []domain.PostSummary
	NextPage string
}

type postSection struct {
	Heading string
	Body    template.HTML
}

type postData struct {
	pageData
	Post     domain.PostDetail
	Sections []postSection
}

type loadingData struct {
	pageData
	RetryAfter int
}

func (r *Renderer) base() pageData {
	return pageData{SiteURL: r.siteURL, SiteTitle: r.siteTitle}
}

// RenderIndex writes the listing page; the load-more button appears only while a cursor remains.
func (r *Renderer) RenderIndex(w io.Writer, state domain.PaginationState) error {
	return r.execute(w, pageIndex, indexData{
		pageData: r.base(),
		Posts:    state.Results,
		NextPage: state.NextPage,
	})
}

func (r *Renderer) RenderPost(w io.Writer, post domain.PostDetail) error {
	sections := make([]postSection, 0, len(post.Content))
	for _, block := range post.Content {
		html, err := r.body.Render(block.Body)
		if err != nil {
			return fmt.Errorf("failed to render body of section %q: %w", block.Heading, err)
		}
		sections = append(sections, postSection{
			Heading: block.Heading,
			// The body renderer escapes all text coming from the CMS.
			Body: template.HTML(html),
		})
	}

	return r.execute(w, pagePost, postData{
		pageData: r.base(),
		Post:     post,
		Sections: sections,
	})
}

func (r *Renderer) RenderNotFound(w io.Writer) error {
	return r.execute(w, pageNotFound, r.base())
}

// RenderLoading writes the placeholder shown while a page cannot be produced yet.
// The page reloads itself after retryAfterSeconds.
func (r *Renderer) RenderLoading(w io.Writer, retryAfterSeconds int) error {
	return r.execute(w, pageLoading, loadingData{
		pageData:   r.base(),
		RetryAfter: retryAfterSeconds,
	})
}

func (r *Renderer) execute(w io.Writer, page string, data any) error {
	t, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown template %s", page)
	}
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", page, err)
	}
	return nil
}
