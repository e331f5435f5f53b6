package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/internal/config"
	"github.com/dfryer1193/spaceblog/internal/render"
)

type ListCmd struct{}

func (l *ListCmd) Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	posts, err := a.posts.AllPosts(ctx)
	if err != nil {
		return err
	}
	return printPosts(os.Stdout, posts)
}

func printPosts(out io.Writer, posts []domain.PostSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSLUG\tTITLE\tAUTHOR")
	for _, p := range posts {
		date := render.FormatPublicationDate(p.FirstPublicationDate)
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", date, p.UID, p.Title, p.Author)
	}
	return w.Flush()
}
