package application

import (
	"context"
	"errors"
	"sync"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoMorePages is returned by LoadMore once the listing is exhausted.
	ErrNoMorePages = errors.New("no more pages")
	// ErrLoadInProgress is returned when LoadMore is called while a previous call is still fetching.
	ErrLoadInProgress = errors.New("load already in progress")
)

// PageFetcher fetches the page addressed by a next-page cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (domain.Page, error)
}

type walkerState int

const (
	walkerIdle walkerState = iota
	walkerFetching
)

// PaginationWalker accumulates post summaries across the pages of a listing.
// Loaded summaries are append-only and kept in fetch order. Once the cursor is
// gone the walker is exhausted for good.
type PaginationWalker struct {
	fetcher PageFetcher

	mu     sync.Mutex
	state  walkerState
	loaded []domain.PostSummary
	cursor string
}

// NewPaginationWalker initializes a walker from an already fetched first page.
func NewPaginationWalker(fetcher PageFetcher, firstPage domain.Page) *PaginationWalker {
	return &PaginationWalker{
		fetcher: fetcher,
		loaded:  normalizePage(firstPage),
		cursor:  firstPage.NextPage,
	}
}

// LoadMore fetches the page at the cursor and appends its summaries.
// Only one call may be outstanding at a time. On failure the loaded results and
// the cursor are left exactly as they were, so the caller may retry.
func (w *PaginationWalker) LoadMore(ctx context.Context) error {
	w.mu.Lock()
	if w.state == walkerFetching {
		w.mu.Unlock()
		return ErrLoadInProgress
	}
	if w.cursor == "" {
		w.mu.Unlock()
		return ErrNoMorePages
	}
	cursor := w.cursor
	w.state = walkerFetching
	w.mu.Unlock()

	page, err := w.fetcher.FetchPage(ctx, cursor)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = walkerIdle

	if err != nil {
		return err
	}

	w.loaded = append(w.loaded, normalizePage(page)...)
	w.cursor = page.NextPage
	return nil
}

// HasMore reports whether a next-page cursor is present.
func (w *PaginationWalker) HasMore() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor != ""
}

// Loading reports whether a LoadMore call is in flight.
func (w *PaginationWalker) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == walkerFetching
}

func (w *PaginationWalker) Cursor() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor, w.cursor != ""
}

// Results returns a copy of the summaries loaded so far.
func (w *PaginationWalker) Results() []domain.PostSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.PostSummary, len(w.loaded))
	copy(out, w.loaded)
	return out
}

// State snapshots the walker for the listing renderer.
func (w *PaginationWalker) State() domain.PaginationState {
	w.mu.Lock()
	defer w.mu.Unlock()
	results := make([]domain.PostSummary, len(w.loaded))
	copy(results, w.loaded)
	return domain.PaginationState{
		Results:  results,
		NextPage: w.cursor,
	}
}

// LoadAll keeps loading until the listing is exhausted.
func (w *PaginationWalker) LoadAll(ctx context.Context) error {
	for w.HasMore() {
		if err := w.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// normalizePage drops records that cannot be displayed. One bad record never
// costs the rest of the page.
func normalizePage(page domain.Page) []domain.PostSummary {
	out := make([]domain.PostSummary, 0, len(page.Results))
	for _, raw := range page.Results {
		summary, err := NormalizeSummary(raw)
		if err != nil {
			log.Warn().Err(err).Str("id", raw.ID).Msg("Skipping malformed post")
			continue
		}
		out = append(out, summary)
	}
	return out
}
