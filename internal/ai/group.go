package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/config"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

// groupGenerator tries each generator once, in order, and returns the first
// success.
type groupGenerator struct {
	items []GeneratorEntry
}

func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			break
		}
	}
	if lastErr == nil {
		return "", ErrUnavailable
	}
	return "", lastErr
}

// BuildGenerator creates the configured providers as one fallback group. It
// returns nil when no provider is configured.
func BuildGenerator(providers []config.AIProviderConfig) (IGenerator, error) {
	items := make([]GeneratorEntry, 0, len(providers))
	for _, p := range providers {
		args := interface{}(p.Data)
		if p.Data == nil {
			args = map[string]interface{}{}
		}
		provider, err := NewProvider(p.Name, args)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", p.Name, err)
		}
		items = append(items, GeneratorEntry{Name: provider.Name(), Generator: NewGenerator(provider, p.Model)})
	}
	return NewGroupGenerator(items), nil
}
