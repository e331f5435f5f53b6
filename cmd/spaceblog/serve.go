package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/dfryer1193/spaceblog/internal/middleware"
	"github.com/dfryer1193/spaceblog/internal/rest"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

type ServeCmd struct {
	ListenAddr         string        `name:"listen-addr" env:"LISTEN_ADDR" default:":8080" help:"Address the server listens on"`
	WebhookSecret      string        `name:"webhook-secret" env:"WEBHOOK_SECRET" help:"Shared secret of the publish webhook; the webhook is disabled when empty"`
	RevalidateSchedule string        `name:"revalidate-schedule" env:"REVALIDATE_SCHEDULE" default:"@every 1h" help:"Cron schedule of the stale page check"`
	RevalidatePeriod   time.Duration `name:"revalidate-period" env:"REVALIDATE_PERIOD" default:"24h" hidden:"" help:"Age after which a page is regenerated"`
}

func (s *ServeCmd) Run(cfg *config.Config) error {
	a, err := newApp(cfg, application.WithRevalidatePeriod(s.RevalidatePeriod))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(s.RevalidateSchedule, func() {
		a.client.InvalidateRef()
		n, err := a.generator.RegenerateStale(ctx)
		if err != nil {
			log.Error().Err(err).Int("regenerated", n).Msg("Stale page regeneration failed")
			return
		}
		if n > 0 {
			log.Info().Int("regenerated", n).Msg("Regenerated stale pages")
		}
	}); err != nil {
		return err
	}

	if !cfg.LogPretty {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.LoggingMiddleware())
	engine.Use(gin.CustomRecovery(middleware.HandlePanics()))
	engine.GET("/metrics", gin.WrapH(a.metricsHandler()))

	api := rest.NewApi(a.posts, a.generator, a.renderer, cfg.OutputDir,
		rest.WithWebhookSecret(s.WebhookSecret),
		rest.WithRecorder(a.recorder),
		rest.WithPublishHook(a.client.InvalidateRef),
	)
	api.Register(engine)
	defer func() {
		if err := api.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close api")
		}
	}()

	srv := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	go func() {
		log.Info().Str("addr", s.ListenAddr).Str("schedule", s.RevalidateSchedule).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}
