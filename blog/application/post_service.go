package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/rs/zerolog/log"
)

const defaultPageSize = 4

// PostService loads the data the listing and post pages are rendered from.
type PostService struct {
	source   domain.ContentSource
	pageSize int
}

func NewPostService(source domain.ContentSource, pageSize int) *PostService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &PostService{
		source:   source,
		pageSize: pageSize,
	}
}

// Listing fetches the first page of posts and returns a walker positioned after it.
func (s *PostService) Listing(ctx context.Context) (*PaginationWalker, error) {
	page, err := s.source.GetByType(ctx, domain.PostType, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page of posts: %w", err)
	}
	return NewPaginationWalker(s.source, page), nil
}

// ListingProps returns the listing page state: the first page and its cursor.
func (s *PostService) ListingProps(ctx context.Context) (domain.PaginationState, error) {
	walker, err := s.Listing(ctx)
	if err != nil {
		return domain.PaginationState{}, err
	}
	return walker.State(), nil
}

// NextPage resumes a listing at cursor and returns only the newly loaded page.
func (s *PostService) NextPage(ctx context.Context, cursor string) (domain.PaginationState, error) {
	if strings.TrimSpace(cursor) == "" {
		return domain.PaginationState{}, ErrNoMorePages
	}

	walker := NewPaginationWalker(s.source, domain.Page{NextPage: cursor})
	if err := walker.LoadMore(ctx); err != nil {
		return domain.PaginationState{}, fmt.Errorf("failed to load page: %w", err)
	}
	return walker.State(), nil
}

// PostProps fetches a single post by slug. Missing posts yield domain.ErrNotFound
// and posts lacking display fields yield domain.ErrMalformedContent.
func (s *PostService) PostProps(ctx context.Context, slug string) (domain.PostDetail, error) {
	if strings.TrimSpace(slug) == "" {
		return domain.PostDetail{}, fmt.Errorf("slug cannot be empty: %w", domain.ErrNotFound)
	}

	raw, err := s.source.GetByUID(ctx, domain.PostType, slug)
	if err != nil {
		return domain.PostDetail{}, fmt.Errorf("failed to fetch post %s: %w", slug, err)
	}

	detail, err := NormalizeDetail(raw)
	if err != nil {
		return domain.PostDetail{}, err
	}
	return detail, nil
}

// AllPosts walks every page of the listing and returns every displayable summary in fetch order.
func (s *PostService) AllPosts(ctx context.Context) ([]domain.PostSummary, error) {
	walker, err := s.Listing(ctx)
	if err != nil {
		return nil, err
	}

	if err := walker.LoadAll(ctx); err != nil {
		if errors.Is(err, ErrNoMorePages) {
			return walker.Results(), nil
		}
		return nil, fmt.Errorf("failed to walk post listing: %w", err)
	}

	posts := walker.Results()
	log.Debug().Int("count", len(posts)).Msg("Walked post listing")
	return posts, nil
}

// AllSlugs returns the UID of every post, the set of addressable post pages.
func (s *PostService) AllSlugs(ctx context.Context) ([]string, error) {
	posts, err := s.AllPosts(ctx)
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.UID)
	}
	return slugs, nil
}
