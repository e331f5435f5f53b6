package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CLI is the command line of spaceblog. Shared settings come from config.Config.
type CLI struct {
	config.Config `embed:""`

	EnvFile []string `name:"env-file" help:"Extra .env files to load" type:"existingfile"`

	Build BuildCmd `cmd:"" help:"Generate the whole site once and exit"`
	Serve ServeCmd `cmd:"" help:"Serve the site, regenerating stale pages on a schedule"`
	List  ListCmd  `cmd:"" help:"Print every published post"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	configureLogging(&c.Config)
	return nil
}

func configureLogging(cfg *config.Config) {
	zerolog.SetGlobalLevel(cfg.Level())
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	if err := config.LoadDotEnv(envFilesFromArgs(os.Args[1:])...); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env file")
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("spaceblog"),
		kong.Description("Static blog generator and server for Prismic content."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli.Config); err != nil {
		log.Fatal().Err(err).Str("command", ctx.Command()).Msg("Command failed")
	}
}

// envFilesFromArgs picks --env-file values out of the raw arguments; they must be loaded
// before kong reads the environment.
func envFilesFromArgs(args []string) []string {
	files := []string{".env"}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--env-file" && i+1 < len(args):
			files = append(files, args[i+1])
			i++
		case len(arg) > len("--env-file=") && arg[:len("--env-file=")] == "--env-file=":
			files = append(files, arg[len("--env-file="):])
		}
	}
	return files
}
