package service

import (
	"context"
	"strings"

	"github.com/xxxsen/anonmsg/internal/model"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
	"github.com/xxxsen/anonmsg/internal/repo"
)

type AccountService struct {
	accounts repo.AccountRepo
}

func NewAccountService(accounts repo.AccountRepo) *AccountService {
	return &AccountService{accounts: accounts}
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return nil, appErr.Internal("find account "+accountID, err)
	}
	return account, nil
}

func (s *AccountService) GetAccepting(ctx context.Context, accountID string) (bool, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.IsAcceptingMessages, nil
}

func (s *AccountService) SetAccepting(ctx context.Context, accountID string, accepting bool) (*model.Account, error) {
	account, err := s.accounts.SetAccepting(ctx, accountID, accepting)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "Failed to update user status")
		}
		return nil, appErr.Internal("set accepting for "+accountID, err)
	}
	return account, nil
}

func (s *AccountService) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	account, err := s.accounts.FindVerifiedByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return nil, appErr.Internal("find profile "+username, err)
	}
	return &model.PublicProfile{
		Username:            account.Username,
		IsAcceptingMessages: account.IsAcceptingMessages,
	}, nil
}
