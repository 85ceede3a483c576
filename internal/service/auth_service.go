package service

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/mail"
	"github.com/xxxsen/anonmsg/internal/model"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
	"github.com/xxxsen/anonmsg/internal/pkg/jwt"
	"github.com/xxxsen/anonmsg/internal/pkg/password"
	"github.com/xxxsen/anonmsg/internal/repo"
)

const revokedTokenCacheSize = 10000

const passwordTooLongMessage = "Password must be no more than 72 characters"

type AuthOptions struct {
	JWTSecret []byte
	JWTTTL    time.Duration
	AppName   string
	// UnifySignInErrors reports unknown identifiers and wrong passwords as
	// the same failure.
	UnifySignInErrors bool
}

type Session struct {
	Token   string
	Claims  *jwt.Claims
	Account *model.Account
}

type AuthService struct {
	accounts repo.AccountRepo
	verifier *VerificationService
	mailer   mail.Sender
	opts     AuthOptions
	revoked  *expirable.LRU[string, struct{}]
}

func NewAuthService(accounts repo.AccountRepo, verifier *VerificationService, mailer mail.Sender, opts AuthOptions) *AuthService {
	return &AuthService{
		accounts: accounts,
		verifier: verifier,
		mailer:   mailer,
		opts:     opts,
		revoked:  expirable.NewLRU[string, struct{}](revokedTokenCacheSize, nil, opts.JWTTTL),
	}
}

// SignUp registers a new unverified account, or refreshes an unverified one
// holding the same email, and mails the verification code.
func (s *AuthService) SignUp(ctx context.Context, username, email, plainPassword string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if len(plainPassword) > password.MaxBytes {
		return nil, appErr.NewValidationError("password", passwordTooLongMessage)
	}
	if _, err := s.accounts.FindVerifiedByUsername(ctx, username); err == nil {
		return nil, appErr.WithMessage(appErr.ErrConflict, "Username already exists")
	} else if !appErr.IsNotFound(err) {
		return nil, appErr.Internal("find verified username", err)
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, appErr.Internal("hash password", err)
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if account.IsVerified {
			return nil, appErr.WithMessage(appErr.ErrConflict, "Email already exists")
		}
		account.Username = username
		account.PasswordHash = hash
		if err := s.verifier.IssueCode(account); err != nil {
			return nil, err
		}
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, s.signUpStoreError(ctx, account, err)
		}
	case appErr.IsNotFound(err):
		account = &model.Account{
			Username:            username,
			Email:               email,
			PasswordHash:        hash,
			IsAcceptingMessages: true,
		}
		if err := s.verifier.IssueCode(account); err != nil {
			return nil, err
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, s.signUpStoreError(ctx, account, err)
		}
	default:
		return nil, appErr.Internal("find account by email", err)
	}

	msg, err := mail.VerificationEmail(s.opts.AppName, account.Email, account.Username, account.VerifyCode, s.verifier.TTL())
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logutil.GetLogger(ctx).Error("send verification email failed",
			zap.String("user_id", account.ID), zap.Error(err))
		return nil, appErr.WithMessage(appErr.ErrUpstream, "Error sending verification email")
	}
	return account, nil
}

// signUpStoreError names the field that collided when a concurrent sign up
// took the username or email between the lookups and the write.
func (s *AuthService) signUpStoreError(ctx context.Context, account *model.Account, err error) error {
	if !appErr.IsConflict(err) {
		return appErr.Internal("save account", err)
	}
	if other, ferr := s.accounts.FindByEmail(ctx, account.Email); ferr == nil && other.ID != account.ID {
		return appErr.WithMessage(appErr.ErrConflict, "Email already exists")
	}
	return appErr.WithMessage(appErr.ErrConflict, "Username already exists")
}

// Authenticate checks verification before the password.
func (s *AuthService) Authenticate(ctx context.Context, identifier, plainPassword string) (*model.Account, error) {
	account, err := s.accounts.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if !appErr.IsNotFound(err) {
			return nil, appErr.Internal("find account by identifier", err)
		}
		if s.opts.UnifySignInErrors {
			return nil, appErr.WithMessage(appErr.ErrBadCredentials, "Invalid credentials")
		}
		return nil, appErr.WithMessage(appErr.ErrNotFound, "User not found")
	}
	if !account.IsVerified {
		return nil, appErr.WithMessage(appErr.ErrNotVerified, "User not verified, please verify your email")
	}
	ok, err := password.Matches(account.PasswordHash, plainPassword)
	if err != nil {
		return nil, appErr.Internal("compare password", err)
	}
	if !ok {
		if s.opts.UnifySignInErrors {
			return nil, appErr.WithMessage(appErr.ErrBadCredentials, "Invalid credentials")
		}
		return nil, appErr.WithMessage(appErr.ErrBadCredentials, "Incorrect password")
	}
	return account, nil
}

func (s *AuthService) SignIn(ctx context.Context, identifier, plainPassword string) (*Session, error) {
	account, err := s.Authenticate(ctx, identifier, plainPassword)
	if err != nil {
		return nil, err
	}
	token, claims, err := jwt.GenerateToken(jwt.Principal{
		UserID:    account.ID,
		Username:  account.Username,
		Verified:  account.IsVerified,
		Accepting: account.IsAcceptingMessages,
	}, s.opts.JWTSecret, s.opts.JWTTTL)
	if err != nil {
		return nil, appErr.Internal("sign session token", err)
	}
	return &Session{Token: token, Claims: claims, Account: account}, nil
}

// SignOut revokes the token until it would have expired anyway.
func (s *AuthService) SignOut(claims *jwt.Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	s.revoked.Add(claims.ID, struct{}{})
}

func (s *AuthService) ParseSession(token string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token, s.opts.JWTSecret)
	if err != nil {
		return nil, appErr.ErrUnauthorized
	}
	if s.revoked.Contains(claims.ID) {
		return nil, appErr.ErrUnauthorized
	}
	return claims, nil
}

// CheckUsername reports whether no verified account holds username.
func (s *AuthService) CheckUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.accounts.FindVerifiedByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if appErr.IsNotFound(err) {
		return true, nil
	}
	return false, appErr.Internal("find verified username", err)
}
