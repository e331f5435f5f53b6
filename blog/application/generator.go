package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sync"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultRevalidatePeriod is how long a generated page stays fresh.
	DefaultRevalidatePeriod = 24 * time.Hour

	IndexPagePath = "index.html"
	FeedPath      = "feed.xml"
)

var (
	// ErrBuildInProgress is returned when a full build is requested while another one runs.
	ErrBuildInProgress = errors.New("build already in progress")
	// ErrInvalidSlug is returned for slugs that cannot be turned into a page path.
	ErrInvalidSlug = errors.New("invalid slug")

	slugRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

// SiteRenderer produces the markup for every generated artifact.
type SiteRenderer interface {
	RenderIndex(w io.Writer, state domain.PaginationState) error
	RenderPost(w io.Writer, post domain.PostDetail) error
	RenderFeed(w io.Writer, posts []domain.PostSummary) error
}

// BuildReport summarizes a full site build.
type BuildReport struct {
	BuildID  string
	Pages    int
	Posts    int
	Failed   []string
	Duration time.Duration
}

type SiteGenerator struct {
	posts      *PostService
	renderer   SiteRenderer
	pages      domain.PageRepository
	metrics    metrics.Recorder
	revalidate time.Duration
	now        func() time.Time

	building sync.Mutex
}

type GeneratorOption func(*SiteGenerator)

func WithRecorder(r metrics.Recorder) GeneratorOption {
	return func(g *SiteGenerator) {
		if r != nil {
			g.metrics = r
		}
	}
}

func WithRevalidatePeriod(d time.Duration) GeneratorOption {
	return func(g *SiteGenerator) {
		if d > 0 {
			g.revalidate = d
		}
	}
}

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *SiteGenerator) {
		g.now = now
	}
}

func NewSiteGenerator(posts *PostService, renderer SiteRenderer, pages domain.PageRepository, opts ...GeneratorOption) *SiteGenerator {
	g := &SiteGenerator{
		posts:      posts,
		renderer:   renderer,
		pages:      pages,
		metrics:    metrics.NoopRecorder{},
		revalidate: DefaultRevalidatePeriod,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidateSlug rejects slugs that cannot name a post page.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

// PostPagePath returns the output path of a post page.
func PostPagePath(slug string) string {
	return path.Join("post", slug, "index.html")
}

// Generate builds the whole site: the listing page, one page per post and the feed.
// A post that fails is logged and reported; the rest of the build continues.
func (g *SiteGenerator) Generate(ctx context.Context) (*BuildReport, error) {
	if !g.building.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer g.building.Unlock()

	start := time.Now()
	report := &BuildReport{BuildID: uuid.NewString()}
	logger := log.With().Str("buildID", report.BuildID).Logger()
	logger.Info().Msg("Starting site build")

	walker, err := g.posts.Listing(ctx)
	if err != nil {
		return nil, err
	}

	// The listing page only shows the first page; the rest is loaded on demand.
	if err := g.renderAndSave(ctx, report.BuildID, IndexPagePath, domain.PageKindIndex, "", func(w io.Writer) error {
		return g.renderer.RenderIndex(w, walker.State())
	}); err != nil {
		return nil, err
	}
	report.Pages++

	if err := walker.LoadAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to walk post listing: %w", err)
	}
	summaries := walker.Results()

	var errs []error
	for _, summary := range summaries {
		if err := g.generatePost(ctx, report.BuildID, summary.UID); err != nil {
			logger.Error().Err(err).Str("slug", summary.UID).Msg("Failed to generate post page")
			report.Failed = append(report.Failed, summary.UID)
			errs = append(errs, err)
			continue
		}
		report.Pages++
		report.Posts++
	}

	if err := g.renderAndSave(ctx, report.BuildID, FeedPath, domain.PageKindFeed, "", func(w io.Writer) error {
		return g.renderer.RenderFeed(w, summaries)
	}); err != nil {
		return nil, err
	}
	report.Pages++

	report.Duration = time.Since(start)
	g.metrics.ObserveBuildDuration(report.Duration)
	logger.Info().
		Int("pages", report.Pages).
		Int("posts", report.Posts).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Site build finished")

	return report, errors.Join(errs...)
}

// GeneratePost renders a single post page on demand. A post that no longer exists
// has its previously generated page removed and yields domain.ErrNotFound.
func (g *SiteGenerator) GeneratePost(ctx context.Context, slug string) error {
	return g.generatePost(ctx, uuid.NewString(), slug)
}

func (g *SiteGenerator) generatePost(ctx context.Context, buildID string, slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}

	pagePath := PostPagePath(slug)
	post, err := g.posts.PostProps(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		g.metrics.IncPageGenerated(string(domain.PageKindPost), metrics.ResultNotFound)
		if delErr := g.pages.DeletePage(ctx, pagePath); delErr != nil {
			log.Warn().Err(delErr).Str("path", pagePath).Msg("Failed to remove page of missing post")
		}
		return err
	}
	if err != nil {
		g.metrics.IncPageGenerated(string(domain.PageKindPost), metrics.ResultFailed)
		return err
	}

	return g.renderAndSave(ctx, buildID, pagePath, domain.PageKindPost, slug, func(w io.Writer) error {
		return g.renderer.RenderPost(w, post)
	})
}

// RegenerateStale rebuilds every page older than the revalidation period.
// A stale listing or feed triggers a full build since both depend on every page of posts.
func (g *SiteGenerator) RegenerateStale(ctx context.Context) (int, error) {
	cutoff := g.now().Add(-g.revalidate)
	stale, err := g.pages.ListStalePages(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale pages: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	for _, p := range stale {
		if p.Kind == domain.PageKindIndex || p.Kind == domain.PageKindFeed {
			report, err := g.Generate(ctx)
			if report == nil {
				return 0, err
			}
			return report.Pages, err
		}
	}

	regenerated := 0
	var errs []error
	for _, p := range stale {
		if err := g.GeneratePost(ctx, p.Slug); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				errs = append(errs, err)
			}
			continue
		}
		regenerated++
	}
	return regenerated, errors.Join(errs...)
}

func (g *SiteGenerator) renderAndSave(ctx context.Context, buildID, pagePath string, kind domain.PageKind, slug string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		g.metrics.IncPageGenerated(string(kind), metrics.ResultFailed)
		return fmt.Errorf("failed to render %s: %w", pagePath, err)
	}

	page := &domain.GeneratedPage{
		Path:        pagePath,
		Kind:        kind,
		Slug:        slug,
		BuildID:     buildID,
		Content:     buf.Bytes(),
		GeneratedAt: g.now(),
	}
	if err := g.pages.SavePage(ctx, page); err != nil {
		g.metrics.IncPageGenerated(string(kind), metrics.ResultFailed)
		return fmt.Errorf("failed to save %s: %w", pagePath, err)
	}

	g.metrics.IncPageGenerated(string(kind), metrics.ResultSuccess)
	log.Debug().Str("path", pagePath).Str("kind", string(kind)).Msg("Generated page")
	return nil
}
