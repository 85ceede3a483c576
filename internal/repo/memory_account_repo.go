package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xxxsen/anonmsg/internal/config"
	"github.com/xxxsen/anonmsg/internal/model"
	appErr "github.com/xxxsen/anonmsg/internal/pkg/errors"
)

func init() {
	Register("memory", func(ctx context.Context, cfg config.StoreConfig) (AccountRepo, CloseFunc, error) {
		return NewMemoryAccountRepo(), noopClose, nil
	})
}

// MemoryAccountRepo keeps accounts in process memory. A single mutex
// serializes every mutation, which gives the same per-document atomicity the
// database backends provide.
type MemoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	order    []string
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]*model.Account)}
}

func cloneAccount(a *model.Account) *model.Account {
	out := *a
	out.Messages = append([]model.Message(nil), a.Messages...)
	return &out
}

func (r *MemoryAccountRepo) find(match func(a *model.Account) bool) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if a := r.accounts[id]; match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *MemoryAccountRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Username == identifier || a.Email == identifier })
}

func (r *MemoryAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.ID == id })
}

func (r *MemoryAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Username == username })
}

func (r *MemoryAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Email == email })
}

func (r *MemoryAccountRepo) FindVerifiedByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.find(func(a *model.Account) bool { return a.Username == username && a.IsVerified })
}

func (r *MemoryAccountRepo) conflictLocked(account *model.Account) bool {
	for id, a := range r.accounts {
		if id == account.ID {
			continue
		}
		if a.Username == account.Username || a.Email == account.Email {
			return true
		}
	}
	return false
}

func (r *MemoryAccountRepo) Create(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictLocked(account) {
		return appErr.ErrConflict
	}
	account.ID = uuid.NewString()
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = cloneAccount(account)
	r.order = append(r.order, account.ID)
	return nil
}

func (r *MemoryAccountRepo) Update(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[account.ID]
	if !ok {
		return appErr.ErrNotFound
	}
	if r.conflictLocked(account) {
		return appErr.ErrConflict
	}
	stored.Username = account.Username
	stored.Email = account.Email
	stored.PasswordHash = account.PasswordHash
	stored.VerifyCode = account.VerifyCode
	stored.VerifyCodeExpiry = account.VerifyCodeExpiry
	stored.IsVerified = account.IsVerified
	stored.IsAcceptingMessages = account.IsAcceptingMessages
	stored.UpdatedAt = time.Now()
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryAccountRepo) SetAccepting(ctx context.Context, id string, accepting bool) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	stored.IsAcceptingMessages = accepting
	stored.UpdatedAt = time.Now()
	return cloneAccount(stored), nil
}

func (r *MemoryAccountRepo) AppendMessage(ctx context.Context, accountID string, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return appErr.ErrNotFound
	}
	msg.ID = uuid.NewString()
	stored.Messages = append(stored.Messages, *msg)
	return nil
}

func (r *MemoryAccountRepo) RemoveMessage(ctx context.Context, accountID, messageID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return 0, nil
	}
	for i, m := range stored.Messages {
		if m.ID == messageID {
			stored.Messages = append(stored.Messages[:i], stored.Messages[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *MemoryAccountRepo) ListMessages(ctx context.Context, accountID string) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.accounts[accountID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return model.SortMessages(stored.Messages), nil
}
