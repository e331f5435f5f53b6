package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/blog/persistence"
	"github.com/dfryer1193/spaceblog/shared/db/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSiteRenderer struct {
	failSlug string
}

func (f fakeSiteRenderer) RenderIndex(w io.Writer, state domain.PaginationState) error {
	_, err := fmt.Fprintf(w, "index:%s|next:%s", strings.Join(uids(state.Results), ","), state.NextPage)
	return err
}

func (f fakeSiteRenderer) RenderPost(w io.Writer, post domain.PostDetail) error {
	if post.UID == f.failSlug {
		return errors.New("template exploded")
	}
	_, err := fmt.Fprintf(w, "post:%s|%d min", post.UID, post.ReadingTime)
	return err
}

func (f fakeSiteRenderer) RenderFeed(w io.Writer, posts []domain.PostSummary) error {
	_, err := fmt.Fprintf(w, "feed:%s", strings.Join(uids(posts), ","))
	return err
}

type generatorFixture struct {
	src       *fakeSource
	pages     *persistence.SQLitePageRepository
	gen       *SiteGenerator
	outputDir string
	now       time.Time
}

func newGeneratorFixture(t *testing.T, renderer SiteRenderer) *generatorFixture {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: filepath.Join(t.TempDir(), "pages.db")})
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })

	f := &generatorFixture{
		src:       newFakeSource(),
		outputDir: t.TempDir(),
		now:       time.Date(2021, time.March, 15, 12, 0, 0, 0, time.UTC),
	}
	f.pages = persistence.NewPageRepository(database.DB(), f.outputDir)
	f.gen = NewSiteGenerator(NewPostService(f.src, 4), renderer, f.pages,
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *generatorFixture) read(t *testing.T, pagePath string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(f.outputDir, filepath.FromSlash(pagePath)))
	require.NoError(t, err, "reading %s", pagePath)
	return string(content)
}

func TestSiteGenerator_Generate(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})
	ctx := context.Background()

	report, err := f.gen.Generate(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.BuildID)
	assert.Equal(t, 6, report.Posts)
	assert.Equal(t, 8, report.Pages)
	assert.Empty(t, report.Failed)

	// the listing only shows the first page and keeps its cursor
	assert.Equal(t, "index:a,b,c,d|next:cursor-2", f.read(t, IndexPagePath))
	assert.Equal(t, "feed:a,b,c,d,e,f", f.read(t, FeedPath))
	assert.Equal(t, "post:e|2 min", f.read(t, PostPagePath("e")))

	page, err := f.pages.GetPage(ctx, PostPagePath("e"))
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, page.BuildID)
	assert.Equal(t, domain.PageKindPost, page.Kind)
	assert.Equal(t, "e", page.Slug)
	assert.True(t, page.GeneratedAt.Equal(f.now))
}

func TestSiteGenerator_Generate_FailingPostDoesNotAbortBuild(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{failSlug: "c"})
	broken := rawPost("e")
	broken.Data.Banner.URL = ""
	f.src.posts["e"] = broken

	report, err := f.gen.Generate(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)

	assert.ErrorIs(t, err, domain.ErrMalformedContent)
	assert.ElementsMatch(t, []string{"c", "e"}, report.Failed)
	assert.Equal(t, 4, report.Posts)
	assert.Equal(t, "post:f|2 min", f.read(t, PostPagePath("f")))
	assert.Equal(t, "feed:a,b,c,d,e,f", f.read(t, FeedPath))
}

func TestSiteGenerator_Generate_ListingFailure(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})
	f.src.firstErr = &domain.FetchError{Op: "listing", Err: errors.New("down")}

	report, err := f.gen.Generate(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestSiteGenerator_Generate_InProgress(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})

	f.gen.building.Lock()
	_, err := f.gen.Generate(context.Background())
	f.gen.building.Unlock()

	assert.ErrorIs(t, err, ErrBuildInProgress)
}

func TestSiteGenerator_GeneratePost(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})
	ctx := context.Background()

	require.NoError(t, f.gen.GeneratePost(ctx, "a"))
	assert.Equal(t, "post:a|2 min", f.read(t, PostPagePath("a")))

	// the post is unpublished: its page goes away
	delete(f.src.posts, "a")
	err := f.gen.GeneratePost(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, statErr := os.Stat(filepath.Join(f.outputDir, "post", "a", "index.html"))
	assert.True(t, os.IsNotExist(statErr))
	_, err = f.pages.GetPage(ctx, PostPagePath("a"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSiteGenerator_GeneratePost_InvalidSlug(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})

	for _, slug := range []string{"", "..", "../etc", "a/b", "-x"} {
		err := f.gen.GeneratePost(context.Background(), slug)
		assert.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}
}

func TestSiteGenerator_RegenerateStale(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})
	ctx := context.Background()

	require.NoError(t, f.gen.GeneratePost(ctx, "a"))

	n, err := f.gen.RegenerateStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "fresh pages are left alone")

	f.now = f.now.Add(DefaultRevalidatePeriod + time.Minute)
	n, err = f.gen.RegenerateStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err := f.pages.GetPage(ctx, PostPagePath("a"))
	require.NoError(t, err)
	assert.True(t, page.GeneratedAt.Equal(f.now))
}

func TestSiteGenerator_RegenerateStale_IndexTriggersFullBuild(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})
	ctx := context.Background()

	_, err := f.gen.Generate(ctx)
	require.NoError(t, err)

	f.now = f.now.Add(DefaultRevalidatePeriod + time.Minute)
	n, err := f.gen.RegenerateStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestSiteGenerator_WithRevalidatePeriod(t *testing.T) {
	f := newGeneratorFixture(t, fakeSiteRenderer{})
	WithRevalidatePeriod(time.Hour)(f.gen)
	ctx := context.Background()

	require.NoError(t, f.gen.GeneratePost(ctx, "b"))
	f.now = f.now.Add(2 * time.Hour)

	n, err := f.gen.RegenerateStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostPagePath(t *testing.T) {
	assert.Equal(t, "post/como-utilizar-hooks/index.html", PostPagePath("como-utilizar-hooks"))
}
