package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/rs/zerolog/log"
)

type BuildCmd struct{}

func (b *BuildCmd) Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.generator.Generate(ctx)
	if report != nil {
		log.Info().
			Str("buildID", report.BuildID).
			Int("pages", report.Pages).
			Int("posts", report.Posts).
			Strs("failed", report.Failed).
			Dur("duration", report.Duration).
			Str("output", cfg.OutputDir).
			Msg("Build complete")
	}
	return err
}
