package domain

import (
	"time"
)

// PostType is the CMS custom type that holds blog posts.
const PostType = "post"

// RawPost is a post document as supplied by the content backend, before any projection.
type RawPost struct {
	ID                   string
	UID                  string
	Type                 string
	FirstPublicationDate *time.Time
	Data                 RawPostData
}

type RawPostData struct {
	Title    string
	Subtitle string
	Author   string
	Banner   Image
	Content  []ContentBlock
}

// ContentBlock is one section of a post: a plain heading followed by a rich-text body.
type ContentBlock struct {
	Heading string   `json:"heading"`
	Body    RichText `json:"body"`
}

// PostSummary is the display-ready projection used on the listing page.
// FirstPublicationDate is nil for drafts that were never published.
type PostSummary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

// PostDetail is the display-ready projection used on a single post page.
type PostDetail struct {
	PostSummary
	BannerURL   string         `json:"banner_url"`
	Content     []ContentBlock `json:"content"`
	ReadingTime int            `json:"reading_time"`
}

// Page is one batch of results from a paginated listing.
// NextPage is empty when there are no further pages.
type Page struct {
	Results  []RawPost
	NextPage string
}

// PaginationState is the listing data handed to the page renderer.
type PaginationState struct {
	Results  []PostSummary `json:"results"`
	NextPage string        `json:"next_page,omitempty"`
}

// HasMore reports whether a further page can be requested.
func (s PaginationState) HasMore() bool {
	return s.NextPage != ""
}
