package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
)

type fakeGenerator struct {
	out string
	err error
}

func (g fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.out, g.err
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSuggest(t *testing.T) {
	svc := NewSuggestionService(fakeGenerator{out: "One?|| Two? ||Three?"}, time.Second)
	raw, questions, err := svc.Suggest(context.Background())
	require.NoError(t, err)
	require.Equal(t, "One?|| Two? ||Three?", raw)
	require.Equal(t, []string{"One?", "Two?", "Three?"}, questions)
}

func TestSuggestFailures(t *testing.T) {
	_, _, err := NewSuggestionService(nil, 0).Suggest(context.Background())
	require.ErrorIs(t, err, appErr.ErrUpstream)

	_, _, err = NewSuggestionService(fakeGenerator{err: errors.New("down")}, 0).Suggest(context.Background())
	require.ErrorIs(t, err, appErr.ErrUpstream)

	_, _, err = NewSuggestionService(fakeGenerator{out: " || "}, 0).Suggest(context.Background())
	require.ErrorIs(t, err, appErr.ErrUpstream)

	_, _, err = NewSuggestionService(blockingGenerator{}, 20*time.Millisecond).Suggest(context.Background())
	require.ErrorIs(t, err, appErr.ErrUpstream)
}

func TestSplitSuggestions(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, SplitSuggestions("a||||b||"))
	require.Empty(t, SplitSuggestions(""))
}
