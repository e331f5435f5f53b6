package domain

import (
	"context"
	"time"
)

// PageKind distinguishes the generated artifacts of a site build.
type PageKind string

const (
	PageKindIndex PageKind = "index"
	PageKindPost  PageKind = "post"
	PageKindFeed  PageKind = "feed"
)

// GeneratedPage records a file written by the site generator.
// Slug is empty for pages that are not tied to a single post.
type GeneratedPage struct {
	Path        string
	Kind        PageKind
	Slug        string
	BuildID     string
	Content     []byte
	GeneratedAt time.Time
}

type PageRepository interface {
	// SavePage writes the page to the output directory and records it in the database
	SavePage(ctx context.Context, p *GeneratedPage) error

	GetPage(ctx context.Context, path string) (*GeneratedPage, error)

	// ListStalePages returns pages generated before the given time, oldest first
	ListStalePages(ctx context.Context, before time.Time) ([]*GeneratedPage, error)

	// DeletePage removes a page from both filesystem and database
	DeletePage(ctx context.Context, path string) error
}
