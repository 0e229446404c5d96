package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

var (
	// ErrNoAccountAvailable signals normal pool exhaustion, not a failure.
	ErrNoAccountAvailable = errors.New("no available accounts")
	// ErrNotFound is returned when an account id is unknown to the pool.
	ErrNotFound = errors.New("account not found")
)

// Persister stores the pool's accounts after mutations. Implementations are
// expected to encrypt credentials at rest.
type Persister interface {
	SaveAccounts(ctx context.Context, accounts []*domain.Account) error
}

// Config bounds account usage.
type Config struct {
	MaxChecksPerAccount int
	CooldownPeriod      time.Duration
}

// Pool owns the credential accounts and their usage accounting.
// All mutations happen under the pool's lock; persistence is best effort.
type Pool struct {
	mu       sync.Mutex
	accounts []*domain.Account
	cursor   int
	cfg      Config
	store    Persister // nil => in-memory only
	logger   logger.Logger
	now      func() time.Time
}

func NewPool(cfg Config, store Persister, log logger.Logger) *Pool {
	return &Pool{
		cfg:    cfg,
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// Replace swaps in a fully loaded account set, normalizing expired cooldowns.
// Used at startup after the persisted pool is decrypted.
func (p *Pool) Replace(accounts []*domain.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for _, acc := range accounts {
		if acc.Status == domain.AccountCooldown &&
			(acc.CooldownUntil == nil || !now.Before(*acc.CooldownUntil)) {
			acc.Status = domain.AccountAvailable
			acc.CooldownUntil = nil
		}
		// A crash while a check was running must not strand the account.
		if acc.Status == domain.AccountInUse {
			acc.Status = domain.AccountAvailable
		}
	}

	p.accounts = accounts
	p.cursor = 0
}

// Add registers a new account. Adding an existing email is idempotent and
// returns the existing record.
func (p *Pool) Add(ctx context.Context, email, password string) (*domain.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acc := range p.accounts {
		if acc.Email == email {
			p.logger.Warn("account already exists", logger.String("email", email))
			return acc, false
		}
	}

	now := p.now()
	acc := &domain.Account{
		ID:        fmt.Sprintf("acc_%d", now.UnixNano()),
		Email:     email,
		Password:  password,
		Status:    domain.AccountAvailable,
		CreatedAt: now,
		IsActive:  true,
	}
	p.accounts = append(p.accounts, acc)
	p.logger.Info("added account", logger.String("email", email))

	p.persistLocked(ctx)
	return acc, true
}

// Remove deletes an account by id.
func (p *Pool) Remove(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, acc := range p.accounts {
		if acc.ID == id {
			p.accounts = append(p.accounts[:i], p.accounts[i+1:]...)
			if p.cursor >= len(p.accounts) {
				p.cursor = 0
			}
			p.logger.Info("removed account", logger.String("id", id))
			p.persistLocked(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// Get returns the account with the given id.
func (p *Pool) Get(id string) (*domain.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acc := range p.accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return nil, false
}

// List returns a snapshot of the pool's accounts.
func (p *Pool) List() []*domain.Account {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*domain.Account, len(p.accounts))
	copy(out, p.accounts)
	return out
}

// Acquire scans for an eligible account round-robin, starting at the rotation
// cursor and advancing it one position per scan step, for at most one full
// revolution. The chosen account is marked in use. Exhaustion returns
// ErrNoAccountAvailable and never blocks.
func (p *Pool) Acquire(ctx context.Context) (*domain.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.accounts) == 0 {
		return nil, ErrNoAccountAvailable
	}

	now := p.now()
	for scanned := 0; scanned < len(p.accounts); scanned++ {
		acc := p.accounts[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.accounts)

		if acc.Eligible(now, p.cfg.MaxChecksPerAccount) {
			acc.MarkInUse(now)
			p.logger.Info("acquired account", logger.String("email", acc.Email))
			p.persistLocked(ctx)
			return acc, nil
		}
	}

	p.logger.Warn("no available accounts")
	return nil, ErrNoAccountAvailable
}

// Release returns an account to the pool after a check, recording the usage.
// When the account has hit its check limit and cooldown is requested, it rests
// until the cooldown period elapses; otherwise it becomes available again.
func (p *Pool) Release(ctx context.Context, acc *domain.Account, useCooldown bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	acc.RegisterCheck(now)

	if acc.ChecksCount >= p.cfg.MaxChecksPerAccount && useCooldown {
		acc.MarkCooldown(now, p.cfg.CooldownPeriod)
		p.logger.Info("account reached check limit, cooling down",
			logger.String("email", acc.Email),
			logger.Time("until", *acc.CooldownUntil))
	} else {
		acc.MarkAvailable()
		p.logger.Debug("released account", logger.String("email", acc.Email))
	}

	p.persistLocked(ctx)
}

// MarkError flags an account as failed with a reason; it will not be acquired again.
func (p *Pool) MarkError(ctx context.Context, id, message string) error {
	return p.mark(ctx, id, func(acc *domain.Account) { acc.MarkError(message) })
}

// MarkBlocked flags an account as blocked by the remote service.
func (p *Pool) MarkBlocked(ctx context.Context, id, message string) error {
	return p.mark(ctx, id, func(acc *domain.Account) { acc.MarkBlocked(message) })
}

func (p *Pool) mark(ctx context.Context, id string, fn func(*domain.Account)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acc := range p.accounts {
		if acc.ID == id {
			fn(acc)
			p.persistLocked(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ResetChecks zeroes the usage counter of one account and forces it available.
func (p *Pool) ResetChecks(ctx context.Context, id string) error {
	return p.mark(ctx, id, resetAccount)
}

// ResetAll zeroes the usage counters of every account.
func (p *Pool) ResetAll(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acc := range p.accounts {
		resetAccount(acc)
	}
	p.logger.Info("reset checks for all accounts", logger.Int("count", len(p.accounts)))
	p.persistLocked(ctx)
}

func resetAccount(acc *domain.Account) {
	acc.ChecksCount = 0
	acc.Status = domain.AccountAvailable
	acc.CooldownUntil = nil
	acc.ErrorMessage = ""
}

// Stats is a point-in-time census of the pool.
type Stats struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	InUse       int `json:"in_use"`
	Cooldown    int `json:"cooldown"`
	Error       int `json:"error"`
	Blocked     int `json:"blocked"`
	TotalChecks int `json:"total_checks"`
}

// Statistics counts accounts per status plus the aggregate check count.
func (p *Pool) Statistics() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Total: len(p.accounts)}
	for _, acc := range p.accounts {
		switch acc.Status {
		case domain.AccountAvailable:
			s.Available++
		case domain.AccountInUse:
			s.InUse++
		case domain.AccountCooldown:
			s.Cooldown++
		case domain.AccountError:
			s.Error++
		case domain.AccountBlocked:
			s.Blocked++
		}
		s.TotalChecks += acc.ChecksCount
	}
	return s
}

// Snapshot returns the accounts for persistence, without resetting anything.
func (p *Pool) Snapshot() []*domain.Account {
	return p.List()
}

// persistLocked saves the pool best effort. The in-memory state stays
// authoritative when the write fails.
func (p *Pool) persistLocked(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveAccounts(ctx, p.accounts); err != nil {
		p.logger.Warn("failed to persist accounts", logger.Error(err))
	}
}
