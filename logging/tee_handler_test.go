package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTeeFiltersPerTarget(t *testing.T) {
	var file, console bytes.Buffer
	h := tee(
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	l := slog.New(h).With("base", "words").WithGroup("trie")

	l.Debug("relocated", "state", 7)
	l.Warn("save failed")

	assert.Contains(t, file.String(), `"msg":"relocated"`)
	assert.Contains(t, file.String(), `"trie":{"state":7}`)
	assert.NotContains(t, console.String(), "relocated")
	assert.Contains(t, console.String(), `"msg":"save failed"`)
	assert.Contains(t, console.String(), `"base":"words"`)
}

func TestTeeKeepsWritingAfterTargetFails(t *testing.T) {
	var console bytes.Buffer
	h := tee(slog.NewJSONHandler(failingWriter{}, nil), slog.NewJSONHandler(&console, nil))

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "trie saved", 0)
	err := h.Handle(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, console.String(), `"msg":"trie saved"`)

	single := slog.NewJSONHandler(&console, nil)
	assert.Same(t, single, tee(single), "a single target is used as is")
}
