package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/anonmsg/internal/model"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
	"github.com/xxxsen/anonmsg/internal/repo"
)

const (
	defaultMessageMinLength = 1
	defaultMessageMaxLength = 300
)

type MessageService struct {
	accounts  repo.AccountRepo
	minLength int
	maxLength int
	now       func() time.Time
}

func NewMessageService(accounts repo.AccountRepo, minLength, maxLength int) *MessageService {
	if minLength <= 0 {
		minLength = defaultMessageMinLength
	}
	if maxLength < minLength {
		maxLength = defaultMessageMaxLength
	}
	return &MessageService{accounts: accounts, minLength: minLength, maxLength: maxLength, now: time.Now}
}

func (s *MessageService) validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < s.minLength {
		if s.minLength == 1 {
			return appErr.NewValidationError("content", "Content is required")
		}
		return appErr.NewValidationError("content", fmt.Sprintf("Content must be at least %d characters", s.minLength))
	}
	if n > s.maxLength {
		return appErr.NewValidationError("content", fmt.Sprintf("Content must be no longer than %d characters", s.maxLength))
	}
	return nil
}

// Send stores an anonymous message for username. The acceptance flag is read
// from the store at call time.
func (s *MessageService) Send(ctx context.Context, username, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if err := s.validateContent(content); err != nil {
		return nil, err
	}
	account, err := s.accounts.FindVerifiedByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return nil, appErr.Internal("find recipient", err)
	}
	if !account.IsAcceptingMessages {
		return nil, appErr.WithMessage(appErr.ErrNotAccepting,
			fmt.Sprintf("%s is not accepting messages currently.", account.Username))
	}
	msg := &model.Message{Content: content, CreatedAt: s.now()}
	if err := s.accounts.AppendMessage(ctx, account.ID, msg); err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return nil, appErr.Internal("append message", err)
	}
	return msg, nil
}

func (s *MessageService) List(ctx context.Context, accountID string) ([]model.Message, error) {
	msgs, err := s.accounts.ListMessages(ctx, accountID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return nil, appErr.Internal("list messages", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

func (s *MessageService) Delete(ctx context.Context, accountID, messageID string) error {
	removed, err := s.accounts.RemoveMessage(ctx, accountID, strings.TrimSpace(messageID))
	if err != nil {
		return appErr.Internal("remove message", err)
	}
	if removed == 0 {
		return appErr.WithMessage(appErr.ErrNotFound, "Message not found or already deleted")
	}
	return nil
}
