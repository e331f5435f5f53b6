package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/dfryer1193/spaceblog/api"
	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Revalidate handles the CMS publish webhook. It returns as soon as the secret is
// checked and rebuilds the site in the background.
func (a *Api) Revalidate(c *gin.Context) {
	if a.webhookSecret == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, api.Error{Error: "webhook not configured"})
		return
	}

	var req api.RevalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: "invalid payload"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(a.webhookSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.Error{Error: "invalid secret"})
		return
	}

	log.Info().Str("type", req.Type).Int("documents", len(req.Documents)).Msg("Received publish webhook")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.onPublish()
		report, err := a.builder.Generate(a.ctx)
		if errors.Is(err, application.ErrBuildInProgress) {
			log.Info().Msg("Build already running, skipping webhook rebuild")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Webhook rebuild finished with errors")
			return
		}
		log.Info().Str("buildID", report.BuildID).Int("pages", report.Pages).Msg("Webhook rebuild finished")
	}()

	c.Status(http.StatusAccepted)
}
