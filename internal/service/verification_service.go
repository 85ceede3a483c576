package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/model"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
	"github.com/xxxsen/anonmsg/internal/repo"
)

const (
	verifyCodeMin        = 100000
	verifyCodeSpan       = 900000
	defaultVerifyCodeTTL = time.Hour
)

type VerificationService struct {
	accounts repo.AccountRepo
	ttl      time.Duration
	now      func() time.Time
}

func NewVerificationService(accounts repo.AccountRepo, ttl time.Duration) *VerificationService {
	if ttl <= 0 {
		ttl = defaultVerifyCodeTTL
	}
	return &VerificationService{accounts: accounts, ttl: ttl, now: time.Now}
}

func (s *VerificationService) TTL() time.Duration {
	return s.ttl
}

// IssueCode sets a fresh code and expiry on account. Nothing is persisted.
func (s *VerificationService) IssueCode(account *model.Account) error {
	code, err := generateCode()
	if err != nil {
		return appErr.Internal("generate verify code", err)
	}
	account.VerifyCode = code
	account.VerifyCodeExpiry = s.now().Add(s.ttl)
	return nil
}

func (s *VerificationService) Verify(ctx context.Context, username, code string) error {
	if decoded, err := url.PathUnescape(username); err == nil {
		username = decoded
	}
	username = strings.TrimSpace(username)
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if appErr.IsNotFound(err) {
			return appErr.WithMessage(appErr.ErrNotFound, "User not found")
		}
		return appErr.Internal("find account "+username, err)
	}
	if account.IsVerified {
		return nil
	}
	if s.now().After(account.VerifyCodeExpiry) {
		return appErr.WithMessage(appErr.ErrExpired, "Verification code expired")
	}
	if account.VerifyCode != code {
		return appErr.WithMessage(appErr.ErrInvalidCode, "Invalid code")
	}
	account.IsVerified = true
	if err := s.accounts.Update(ctx, account); err != nil {
		return appErr.Internal("mark account "+account.ID+" verified", err)
	}
	logutil.GetLogger(ctx).Info("account verified", zap.String("user_id", account.ID))
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verifyCodeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+verifyCodeMin, 10), nil
}
