package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFilesFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "default only", args: []string{"build"}, want: []string{".env"}},
		{name: "separate value", args: []string{"--env-file", "prod.env", "serve"}, want: []string{".env", "prod.env"}},
		{name: "inline value", args: []string{"serve", "--env-file=a.env", "--env-file=b.env"}, want: []string{".env", "a.env", "b.env"}},
		{name: "dangling flag", args: []string{"--env-file"}, want: []string{".env"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, envFilesFromArgs(tt.args))
		})
	}
}

func TestPrintPosts(t *testing.T) {
	date := time.Date(2021, time.March, 15, 12, 0, 0, 0, time.UTC)
	posts := []domain.PostSummary{
		{UID: "como-utilizar-hooks", Title: "Como utilizar Hooks", Author: "Joseph Oliveira", FirstPublicationDate: &date},
		{UID: "rascunho", Title: "Rascunho", Author: "Danilo"},
	}

	var buf bytes.Buffer
	require.NoError(t, printPosts(&buf, posts))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "15 mar 2021")
	assert.Contains(t, lines[1], "como-utilizar-hooks")
	assert.True(t, strings.HasPrefix(lines[2], "-"))
}
