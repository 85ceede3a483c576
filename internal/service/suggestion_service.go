package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/ai"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
)

const SuggestionSeparator = "||"

const suggestionPrompt = `Create a list of three open-ended and engaging questions formatted as a single string.
Each question should be separated by '||'. These questions are for an anonymous social messaging platform and should be suitable for a diverse audience.
- Avoid personal or sensitive topics.
- Focus on universal themes that encourage friendly interaction.
- Output ONLY the questions, for example: What's a hobby you've recently started?||If you could have dinner with any historical figure, who would it be?||What's a simple thing that makes you happy?`

type SuggestionService struct {
	gen     ai.IGenerator
	timeout time.Duration
}

func NewSuggestionService(gen ai.IGenerator, timeout time.Duration) *SuggestionService {
	return &SuggestionService{gen: gen, timeout: timeout}
}

// Suggest returns the raw separator joined text and its parts.
func (s *SuggestionService) Suggest(ctx context.Context) (string, []string, error) {
	if s.gen == nil {
		return "", nil, appErr.WithMessage(appErr.ErrUpstream, "suggestions are not configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, err := s.gen.Generate(ctx, suggestionPrompt)
	if err != nil {
		logutil.GetLogger(ctx).Error("generate suggestions failed", zap.Error(err))
		return "", nil, appErr.WithMessage(appErr.ErrUpstream, "Failed to generate suggestions")
	}
	raw = strings.TrimSpace(raw)
	questions := SplitSuggestions(raw)
	if len(questions) == 0 {
		return "", nil, appErr.WithMessage(appErr.ErrUpstream, "Empty suggestion response")
	}
	return raw, questions, nil
}

func SplitSuggestions(raw string) []string {
	parts := strings.Split(raw, SuggestionSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
