package application

import (
	"strings"

	"github.com/dfryer1193/spaceblog/blog/domain"
)

// NormalizeSummary projects a raw post onto the fields shown on the listing page.
// A missing UID or title yields a *domain.MalformedContentError.
func NormalizeSummary(raw domain.RawPost) (domain.PostSummary, error) {
	if strings.TrimSpace(raw.UID) == "" {
		return domain.PostSummary{}, &domain.MalformedContentError{ID: raw.ID, Field: "uid"}
	}
	if strings.TrimSpace(raw.Data.Title) == "" {
		return domain.PostSummary{}, &domain.MalformedContentError{ID: raw.UID, Field: "data.title"}
	}

	return domain.PostSummary{
		UID:                  raw.UID,
		FirstPublicationDate: raw.FirstPublicationDate,
		Title:                raw.Data.Title,
		Subtitle:             raw.Data.Subtitle,
		Author:               raw.Data.Author,
	}, nil
}

// NormalizeDetail projects a raw post onto the fields shown on its own page
// and derives the reading time. The banner is required in addition to the summary fields.
func NormalizeDetail(raw domain.RawPost) (domain.PostDetail, error) {
	summary, err := NormalizeSummary(raw)
	if err != nil {
		return domain.PostDetail{}, err
	}

	if strings.TrimSpace(raw.Data.Banner.URL) == "" {
		return domain.PostDetail{}, &domain.MalformedContentError{ID: raw.UID, Field: "data.banner.url"}
	}

	content := make([]domain.ContentBlock, len(raw.Data.Content))
	copy(content, raw.Data.Content)

	return domain.PostDetail{
		PostSummary: summary,
		BannerURL:   raw.Data.Banner.URL,
		Content:     content,
		ReadingTime: EstimateReadingTime(content),
	}, nil
}
