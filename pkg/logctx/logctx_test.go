package logctx

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// These tests replace slog.Default(), so they do not run in parallel.

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrom_DefaultWhenMissing(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))
}

func TestIntoFrom_RoundTrip(t *testing.T) {
	l := newSilent()
	ctx := Into(context.Background(), l)
	require.Equal(t, l, From(ctx))
}

func TestFrom_IgnoresNilLogger(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	def := newSilent()
	slog.SetDefault(def)

	var nilLogger *slog.Logger
	require.Equal(t, def, From(Into(context.Background(), nilLogger)))
	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, "not-a-logger")))
}

func TestInto_ChildShadowsParent(t *testing.T) {
	parentL, childL := newSilent(), newSilent()
	parent := Into(context.Background(), parentL)
	child := Into(parent, childL)

	require.Equal(t, childL, From(child))
	require.Equal(t, parentL, From(parent))
}
