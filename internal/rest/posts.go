package rest

import (
	"net/http"
	"strings"

	"github.com/dfryer1193/spaceblog/api"
	"github.com/dfryer1193/spaceblog/internal/metrics"
	"github.com/gin-gonic/gin"
)

// GetPosts returns the first page of the listing.
func (a *Api) GetPosts(c *gin.Context) {
	state, err := a.posts.ListingProps(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.NewPostPage(state))
}

// GetNextPage returns the page addressed by the cursor query parameter.
func (a *Api) GetNextPage(c *gin.Context) {
	cursor := strings.TrimSpace(c.Query("cursor"))
	if cursor == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: "cursor is required"})
		return
	}

	state, err := a.posts.NextPage(c.Request.Context(), cursor)
	if err != nil {
		a.metrics.IncLoadMore(metrics.ResultFailed)
		writeError(c, err)
		return
	}
	a.metrics.IncLoadMore(metrics.ResultSuccess)
	c.JSON(http.StatusOK, api.NewPostPage(state))
}

func (a *Api) GetPost(c *gin.Context) {
	slug := c.Param("slug")

	post, err := a.posts.PostProps(c.Request.Context(), slug)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.NewPost(post))
}
