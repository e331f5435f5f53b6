package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dfryer1193/spaceblog/api"
	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePosts struct {
	listing domain.PaginationState
	pages   map[string]domain.PaginationState
	posts   map[string]domain.PostDetail
	err     error
}

func (f *fakePosts) ListingProps(ctx context.Context) (domain.PaginationState, error) {
	return f.listing, f.err
}

func (f *fakePosts) NextPage(ctx context.Context, cursor string) (domain.PaginationState, error) {
	if f.err != nil {
		return domain.PaginationState{}, f.err
	}
	if !strings.HasPrefix(cursor, "https://repo.cdn.prismic.io/") {
		return domain.PaginationState{}, &domain.FetchError{Op: "fetching next page", Err: fmt.Errorf("%w: %s", domain.ErrInvalidCursor, cursor)}
	}
	return f.pages[cursor], nil
}

func (f *fakePosts) PostProps(ctx context.Context, slug string) (domain.PostDetail, error) {
	if f.err != nil {
		return domain.PostDetail{}, f.err
	}
	p, ok := f.posts[slug]
	if !ok {
		return domain.PostDetail{}, fmt.Errorf("post %s: %w", slug, domain.ErrNotFound)
	}
	return p, nil
}

// fakeBuilder writes placeholder pages into outputDir.
type fakeBuilder struct {
	outputDir string
	known     map[string]bool
	err       error
	generated atomic.Int32
	done      chan struct{}
}

func (f *fakeBuilder) Generate(ctx context.Context) (*application.BuildReport, error) {
	defer func() {
		if f.done != nil {
			f.done <- struct{}{}
		}
	}()
	f.generated.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if err := f.write(application.IndexPagePath, "<html>index</html>"); err != nil {
		return nil, err
	}
	return &application.BuildReport{BuildID: "build-1", Pages: 1}, nil
}

func (f *fakeBuilder) GeneratePost(ctx context.Context, slug string) error {
	if f.err != nil {
		return f.err
	}
	if !f.known[slug] {
		return fmt.Errorf("post %s: %w", slug, domain.ErrNotFound)
	}
	return f.write(application.PostPagePath(slug), "<html>"+slug+"</html>")
}

func (f *fakeBuilder) write(pagePath, content string) error {
	file := filepath.Join(f.outputDir, filepath.FromSlash(pagePath))
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return os.WriteFile(file, []byte(content), 0644)
}

type fakePages struct{}

func (fakePages) RenderNotFound(w io.Writer) error {
	_, err := io.WriteString(w, "Post não encontrado")
	return err
}

func (fakePages) RenderLoading(w io.Writer, retryAfterSeconds int) error {
	_, err := io.WriteString(w, "Carregando...")
	return err
}

func setupApi(t *testing.T, posts *fakePosts, builder *fakeBuilder, opts ...ApiOption) (*gin.Engine, *Api) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if builder.outputDir == "" {
		builder.outputDir = t.TempDir()
	}
	a := NewApi(posts, builder, fakePages{}, builder.outputDir, opts...)
	t.Cleanup(func() { _ = a.Close() })

	engine := gin.New()
	a.Register(engine)
	return engine, a
}

func do(engine *gin.Engine, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	engine.ServeHTTP(rec, req)
	return rec
}

func published(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func TestGetPosts(t *testing.T) {
	posts := &fakePosts{listing: domain.PaginationState{
		Results: []domain.PostSummary{
			{UID: "como-utilizar-hooks", Title: "Como utilizar Hooks", Author: "Joseph Oliveira", FirstPublicationDate: published(2021, time.March, 15)},
		},
		NextPage: "https://repo.cdn.prismic.io/api/v2/documents/search?page=2",
	}}
	engine, _ := setupApi(t, posts, &fakeBuilder{})

	rec := do(engine, http.MethodGet, "/posts/v1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page api.PostPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "como-utilizar-hooks", page.Results[0].UID)
	assert.Equal(t, "15 mar 2021", page.Results[0].DisplayDate)
	require.NotNil(t, page.NextPage)
	assert.Equal(t, posts.listing.NextPage, *page.NextPage)
}

func TestGetNextPage(t *testing.T) {
	cursor := "https://repo.cdn.prismic.io/api/v2/documents/search?page=2"
	posts := &fakePosts{pages: map[string]domain.PaginationState{
		cursor: {Results: []domain.PostSummary{{UID: "criando-um-app", Title: "Criando um app"}}},
	}}
	engine, _ := setupApi(t, posts, &fakeBuilder{})

	rec := do(engine, http.MethodGet, "/posts/v1/page?cursor="+strings.ReplaceAll(cursor, "&", "%26"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page api.PostPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "criando-um-app", page.Results[0].UID)
	assert.Nil(t, page.NextPage)
	assert.Contains(t, rec.Body.String(), `"next_page":null`)
}

func TestGetNextPage_BadCursor(t *testing.T) {
	engine, _ := setupApi(t, &fakePosts{}, &fakeBuilder{})

	tests := []struct {
		name   string
		target string
	}{
		{name: "missing cursor", target: "/posts/v1/page"},
		{name: "blank cursor", target: "/posts/v1/page?cursor=%20"},
		{name: "foreign host", target: "/posts/v1/page?cursor=http://169.254.169.254/latest/meta-data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(engine, http.MethodGet, tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetPost(t *testing.T) {
	posts := &fakePosts{posts: map[string]domain.PostDetail{
		"como-utilizar-hooks": {
			PostSummary: domain.PostSummary{UID: "como-utilizar-hooks", Title: "Como utilizar Hooks"},
			BannerURL:   "https://images.prismic.io/banner.png",
			ReadingTime: 4,
		},
	}}
	engine, _ := setupApi(t, posts, &fakeBuilder{})

	rec := do(engine, http.MethodGet, "/posts/v1/como-utilizar-hooks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var post api.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, 4, post.ReadingTime)
	assert.Equal(t, "https://images.prismic.io/banner.png", post.BannerURL)
	assert.Equal(t, "", post.DisplayDate)

	rec = do(engine, http.MethodGet, "/posts/v1/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: domain.ErrNotFound, want: http.StatusNotFound},
		{name: "malformed", err: &domain.MalformedContentError{ID: "x", Field: "data.title"}, want: http.StatusUnprocessableEntity},
		{name: "fetch", err: &domain.FetchError{Op: "listing", StatusCode: 500, Err: fmt.Errorf("boom")}, want: http.StatusBadGateway},
		{name: "unknown", err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := setupApi(t, &fakePosts{err: tt.err}, &fakeBuilder{})
			rec := do(engine, http.MethodGet, "/posts/v1", nil)
			assert.Equal(t, tt.want, rec.Code)

			var body api.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestGetPostPage(t *testing.T) {
	builder := &fakeBuilder{known: map[string]bool{"como-utilizar-hooks": true}}
	engine, _ := setupApi(t, &fakePosts{}, builder)

	// generated on first request
	rec := do(engine, http.MethodGet, "/post/como-utilizar-hooks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "como-utilizar-hooks")

	// served from disk afterwards
	builder.known = nil
	rec = do(engine, http.MethodGet, "/post/como-utilizar-hooks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPostPage_NotFound(t *testing.T) {
	builder := &fakeBuilder{}
	engine, _ := setupApi(t, &fakePosts{}, builder)
	require.NoError(t, builder.write(application.IndexPagePath, "<html>index</html>"))

	for _, target := range []string{"/post/unknown", "/post/..", "/post/-dash"} {
		rec := do(engine, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Post não encontrado", target)
	}
}

func TestGetPostPage_CMSUnavailable(t *testing.T) {
	builder := &fakeBuilder{err: &domain.FetchError{Op: "getting post", Err: fmt.Errorf("connection refused")}}
	engine, _ := setupApi(t, &fakePosts{}, builder)

	rec := do(engine, http.MethodGet, "/post/como-utilizar-hooks", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Carregando...")
}

func TestGetIndex_BuildsOnFirstRequest(t *testing.T) {
	builder := &fakeBuilder{}
	engine, _ := setupApi(t, &fakePosts{}, builder)

	rec := do(engine, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "index")

	rec = do(engine, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), builder.generated.Load())
}

func TestGetFeed(t *testing.T) {
	builder := &fakeBuilder{}
	engine, _ := setupApi(t, &fakePosts{}, builder)

	rec := do(engine, http.MethodGet, "/feed.xml", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, builder.write(application.FeedPath, "<rss></rss>"))
	rec = do(engine, http.MethodGet, "/feed.xml", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<rss></rss>", rec.Body.String())
}

func TestRevalidate(t *testing.T) {
	builder := &fakeBuilder{done: make(chan struct{}, 1)}
	var hooked sync.WaitGroup
	hooked.Add(1)
	engine, _ := setupApi(t, &fakePosts{}, builder,
		WithWebhookSecret("s3cret"),
		WithPublishHook(func() { hooked.Done() }),
	)

	rec := do(engine, http.MethodPost, "/webhook/revalidate", strings.NewReader(`{"type":"api-update","secret":"s3cret","documents":["XyZ1"]}`))
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-builder.done:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild did not run")
	}
	hooked.Wait()
	assert.Equal(t, int32(1), builder.generated.Load())
}

func TestRevalidate_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		body   string
		want   int
	}{
		{name: "wrong secret", secret: "s3cret", body: `{"secret":"guess"}`, want: http.StatusUnauthorized},
		{name: "missing secret", secret: "s3cret", body: `{}`, want: http.StatusUnauthorized},
		{name: "invalid json", secret: "s3cret", body: `{`, want: http.StatusBadRequest},
		{name: "not configured", secret: "", body: `{"secret":""}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &fakeBuilder{}
			engine, _ := setupApi(t, &fakePosts{}, builder, WithWebhookSecret(tt.secret))

			rec := do(engine, http.MethodPost, "/webhook/revalidate", strings.NewReader(tt.body))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, int32(0), builder.generated.Load())
		})
	}
}

func TestHealth(t *testing.T) {
	engine, _ := setupApi(t, &fakePosts{}, &fakeBuilder{})

	rec := do(engine, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
