package main

import (
	"fmt"
	"net/http"

	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/dfryer1193/spaceblog/blog/persistence"
	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/dfryer1193/spaceblog/internal/metrics"
	"github.com/dfryer1193/spaceblog/internal/render"
	"github.com/dfryer1193/spaceblog/shared/db"
	"github.com/dfryer1193/spaceblog/shared/db/sqlite"
	"github.com/dfryer1193/spaceblog/shared/prismic"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// app holds the wired components shared by every command.
type app struct {
	database  db.Database
	client    *prismic.Client
	posts     *application.PostService
	renderer  *render.Renderer
	generator *application.SiteGenerator
	registry  *prom.Registry
	recorder  *metrics.PrometheusRecorder
}

func newApp(cfg *config.Config, opts ...application.GeneratorOption) (*app, error) {
	registry := prom.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	client, err := prismic.NewClient(cfg.PrismicAPIURL,
		prismic.WithAccessToken(cfg.PrismicAccessToken),
		prismic.WithTimeout(cfg.RequestTimeout),
		prismic.WithRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create content client: %w", err)
	}

	renderer, err := render.NewRenderer(cfg.SiteURL, application.NewHTMLRenderer(cfg.SiteURL), render.WithSiteTitle(cfg.SiteTitle))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: cfg.DBPath})
	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	posts := application.NewPostService(client, cfg.PageSize)
	pages := persistence.NewPageRepository(database.DB(), cfg.OutputDir)
	generator := application.NewSiteGenerator(posts, renderer, pages,
		append([]application.GeneratorOption{application.WithRecorder(recorder)}, opts...)...,
	)

	return &app{
		database:  database,
		client:    client,
		posts:     posts,
		renderer:  renderer,
		generator: generator,
		registry:  registry,
		recorder:  recorder,
	}, nil
}

func (a *app) metricsHandler() http.Handler {
	return metrics.HTTPHandler(a.registry)
}

func (a *app) Close() {
	if err := a.database.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
