package rest

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// retryAfterSeconds is how long the loading page waits before reloading.
const retryAfterSeconds = 5

// GetIndex serves the generated listing, building the site first if it has never been built.
func (a *Api) GetIndex(c *gin.Context) {
	file := a.localFile(application.IndexPagePath)
	if !exists(file) {
		if _, err := a.builder.Generate(c.Request.Context()); err != nil && !exists(file) {
			a.renderUnavailable(c, err)
			return
		}
	}
	c.File(file)
}

// GetPostPage serves a generated post page. A post without a page yet is generated while
// the request waits.
func (a *Api) GetPostPage(c *gin.Context) {
	slug := c.Param("slug")
	if err := application.ValidateSlug(slug); err != nil {
		a.NotFound(c)
		return
	}
	file := a.localFile(application.PostPagePath(slug))

	if exists(file) {
		c.File(file)
		return
	}

	err := a.builder.GeneratePost(c.Request.Context(), slug)
	switch {
	case err == nil:
		c.File(file)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, application.ErrInvalidSlug), errors.Is(err, domain.ErrMalformedContent):
		log.Debug().Err(err).Str("slug", slug).Msg("No page for post")
		a.NotFound(c)
	default:
		a.renderUnavailable(c, err)
	}
}

func (a *Api) GetFeed(c *gin.Context) {
	file := a.localFile(application.FeedPath)
	if !exists(file) {
		a.NotFound(c)
		return
	}
	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.File(file)
}

func (a *Api) NotFound(c *gin.Context) {
	var buf bytes.Buffer
	if err := a.pages.RenderNotFound(&buf); err != nil {
		log.Error().Err(err).Msg("Failed to render not found page")
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", buf.Bytes())
}

// renderUnavailable answers with the self-refreshing loading page when the CMS cannot be reached.
func (a *Api) renderUnavailable(c *gin.Context, err error) {
	if !errors.Is(err, domain.ErrFetch) && !errors.Is(err, application.ErrBuildInProgress) {
		writeError(c, err)
		return
	}

	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Page not available yet")
	var buf bytes.Buffer
	if renderErr := a.pages.RenderLoading(&buf, retryAfterSeconds); renderErr != nil {
		log.Error().Err(renderErr).Msg("Failed to render loading page")
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	c.Data(http.StatusServiceUnavailable, "text/html; charset=utf-8", buf.Bytes())
}

func (a *Api) localFile(pagePath string) string {
	return filepath.Join(a.outputDir, filepath.FromSlash(pagePath))
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
