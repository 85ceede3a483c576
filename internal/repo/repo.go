package repo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/anonmsg/internal/config"
	"github.com/xxxsen/anonmsg/internal/model"
)

// AccountRepo is the credential store. Lookups return appErr.ErrNotFound when
// nothing matches; unique violations surface as appErr.ErrConflict.
type AccountRepo interface {
	// FindByIdentifier matches username OR email.
	FindByIdentifier(ctx context.Context, identifier string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindVerifiedByUsername(ctx context.Context, username string) (*model.Account, error)
	// Create assigns account.ID.
	Create(ctx context.Context, account *model.Account) error
	// Update writes identity, secret, verification and acceptance fields.
	// The message list is never touched.
	Update(ctx context.Context, account *model.Account) error
	SetAccepting(ctx context.Context, id string, accepting bool) (*model.Account, error)
	// AppendMessage atomically adds msg to the account and assigns msg.ID.
	AppendMessage(ctx context.Context, accountID string, msg *model.Message) error
	// RemoveMessage deletes one message owned by accountID and reports how
	// many were removed (0 or 1).
	RemoveMessage(ctx context.Context, accountID, messageID string) (int64, error)
	// ListMessages returns the account's messages newest first.
	ListMessages(ctx context.Context, accountID string) ([]model.Message, error)
}

type CloseFunc func(ctx context.Context) error

type Factory func(ctx context.Context, cfg config.StoreConfig) (AccountRepo, CloseFunc, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(ctx context.Context, cfg config.StoreConfig) (AccountRepo, CloseFunc, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, nil, fmt.Errorf("store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	return factory(ctx, cfg)
}

func noopClose(context.Context) error { return nil }
