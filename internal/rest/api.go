package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/dfryer1193/spaceblog/api"
	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PostReader is the data layer behind the JSON API.
type PostReader interface {
	ListingProps(ctx context.Context) (domain.PaginationState, error)
	NextPage(ctx context.Context, cursor string) (domain.PaginationState, error)
	PostProps(ctx context.Context, slug string) (domain.PostDetail, error)
}

// SiteBuilder produces the generated pages.
type SiteBuilder interface {
	Generate(ctx context.Context) (*application.BuildReport, error)
	GeneratePost(ctx context.Context, slug string) error
}

// PageWriter renders the pages the server produces itself instead of reading from disk.
type PageWriter interface {
	RenderNotFound(w io.Writer) error
	RenderLoading(w io.Writer, retryAfterSeconds int) error
}

type Api struct {
	posts         PostReader
	builder       SiteBuilder
	pages         PageWriter
	outputDir     string
	webhookSecret string
	metrics       metrics.Recorder
	// onPublish runs before a webhook-triggered rebuild, e.g. to drop a cached content ref.
	onPublish func()

	// Service lifecycle context, cancelled when Close is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

type ApiOption func(*Api)

func WithWebhookSecret(secret string) ApiOption {
	return func(a *Api) {
		a.webhookSecret = secret
	}
}

func WithRecorder(r metrics.Recorder) ApiOption {
	return func(a *Api) {
		if r != nil {
			a.metrics = r
		}
	}
}

func WithPublishHook(fn func()) ApiOption {
	return func(a *Api) {
		a.onPublish = fn
	}
}

func NewApi(posts PostReader, builder SiteBuilder, pages PageWriter, outputDir string, opts ...ApiOption) *Api {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Api{
		posts:     posts,
		builder:   builder,
		pages:     pages,
		outputDir: outputDir,
		metrics:   metrics.NoopRecorder{},
		onPublish: func() {},
		ctx:       ctx,
		cancel:    cancel,
		wg:        &sync.WaitGroup{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register mounts every route on router.
func (a *Api) Register(router *gin.Engine) {
	router.GET("/", a.GetIndex)
	router.GET("/post/:slug", a.GetPostPage)
	router.GET("/feed.xml", a.GetFeed)

	postsV1 := router.Group("posts/v1")
	{
		postsV1.GET("", a.GetPosts)
		postsV1.GET("/page", a.GetNextPage)
		postsV1.GET("/:slug", a.GetPost)
	}

	router.POST("/webhook/revalidate", a.Revalidate)
	router.GET("/healthz", a.Health)
	router.NoRoute(a.NotFound)
}

// Close cancels background rebuilds and waits for them to finish.
func (a *Api) Close() error {
	a.cancel()
	a.wg.Wait()
	return nil
}

func (a *Api) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidCursor), errors.Is(err, application.ErrNoMorePages):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, application.ErrInvalidSlug):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedContent):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFetch):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, api.Error{Error: err.Error()})
}
