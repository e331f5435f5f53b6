package render

import (
	"fmt"
	"io"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/gorilla/feeds"
)

const maxFeedItems = 20

// RenderFeed writes an RSS document with the most recent posts, newest first as listed.
func (r *Renderer) RenderFeed(w io.Writer, posts []domain.PostSummary) error {
	feed := &feeds.Feed{
		Title:       r.siteTitle,
		Link:        &feeds.Link{Href: r.siteURL + "/"},
		Description: r.siteTitle,
		Created:     latestPublication(posts),
	}

	if len(posts) > maxFeedItems {
		posts = posts[:maxFeedItems]
	}

	for _, post := range posts {
		item := &feeds.Item{
			Id:          post.UID,
			Title:       post.Title,
			Link:        &feeds.Link{Href: r.siteURL + "/post/" + post.UID},
			Description: post.Subtitle,
		}
		if post.Author != "" {
			item.Author = &feeds.Author{Name: post.Author}
		}
		if post.FirstPublicationDate != nil {
			item.Created = *post.FirstPublicationDate
		}
		feed.Items = append(feed.Items, item)
	}

	if err := feed.WriteRss(w); err != nil {
		return fmt.Errorf("failed to write RSS feed: %w", err)
	}
	return nil
}

// latestPublication returns the newest publication date, or the zero time.
func latestPublication(posts []domain.PostSummary) time.Time {
	var latest time.Time
	for _, p := range posts {
		if p.FirstPublicationDate != nil && p.FirstPublicationDate.After(latest) {
			latest = *p.FirstPublicationDate
		}
	}
	return latest
}
