package api

import (
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/internal/render"
)

type PostSummary struct {
	UID                  string     `json:"uid"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	DisplayDate          string     `json:"display_date"`
}

// PostPage is one page of the listing; NextPage is null on the last page.
type PostPage struct {
	Results  []PostSummary `json:"results"`
	NextPage *string       `json:"next_page"`
}

type Post struct {
	PostSummary
	BannerURL   string                `json:"banner_url"`
	ReadingTime int                   `json:"reading_time"`
	Content     []domain.ContentBlock `json:"content"`
}

// RevalidateRequest is the body of a CMS publish webhook.
type RevalidateRequest struct {
	Type      string   `json:"type"`
	Secret    string   `json:"secret"`
	Documents []string `json:"documents"`
}

type Error struct {
	Error string `json:"error"`
}

func NewPostSummary(s domain.PostSummary) PostSummary {
	return PostSummary{
		UID:                  s.UID,
		Title:                s.Title,
		Subtitle:             s.Subtitle,
		Author:               s.Author,
		FirstPublicationDate: s.FirstPublicationDate,
		DisplayDate:          render.FormatPublicationDate(s.FirstPublicationDate),
	}
}

func NewPostPage(state domain.PaginationState) PostPage {
	results := make([]PostSummary, 0, len(state.Results))
	for _, s := range state.Results {
		results = append(results, NewPostSummary(s))
	}
	page := PostPage{Results: results}
	if state.NextPage != "" {
		next := state.NextPage
		page.NextPage = &next
	}
	return page
}

func NewPost(d domain.PostDetail) Post {
	return Post{
		PostSummary: NewPostSummary(d.PostSummary),
		BannerURL:   d.BannerURL,
		ReadingTime: d.ReadingTime,
		Content:     d.Content,
	}
}
