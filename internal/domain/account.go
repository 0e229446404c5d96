package domain

import "time"

// AccountStatus is the availability state of a credential account.
type AccountStatus string

const (
	AccountAvailable AccountStatus = "available"
	AccountInUse     AccountStatus = "in_use"
	AccountCooldown  AccountStatus = "cooldown"
	AccountError     AccountStatus = "error"
	AccountBlocked   AccountStatus = "blocked"
)

// Account is a credential identity consumable a bounded number of times
// before requiring cooldown. Mutations happen only under the owning pool's lock.
type Account struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	Password      string        `json:"password"`
	Status        AccountStatus `json:"status"`
	ChecksCount   int           `json:"checks_count"`
	LastCheckTime *time.Time    `json:"last_check_time,omitempty"`
	LastUsedAt    *time.Time    `json:"last_used_at,omitempty"`
	CooldownUntil *time.Time    `json:"cooldown_until,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	IsActive      bool          `json:"is_active"`
}

// Eligible reports whether the account can take another check right now.
// An expired cooldown is cleared as a side effect, so a Cooldown account whose
// timer has elapsed becomes Available during the eligibility scan.
func (a *Account) Eligible(now time.Time, maxChecks int) bool {
	if !a.IsActive || a.Status == AccountError || a.Status == AccountBlocked {
		return false
	}

	if a.Status == AccountCooldown {
		if a.CooldownUntil == nil || !now.Before(*a.CooldownUntil) {
			a.Status = AccountAvailable
			a.CooldownUntil = nil
		} else {
			return false
		}
	}

	if a.Status == AccountInUse {
		return false
	}

	return a.ChecksCount < maxChecks
}

func (a *Account) MarkInUse(now time.Time) {
	a.Status = AccountInUse
	a.LastUsedAt = &now
}

func (a *Account) MarkAvailable() {
	a.Status = AccountAvailable
}

func (a *Account) MarkCooldown(now time.Time, period time.Duration) {
	until := now.Add(period)
	a.Status = AccountCooldown
	a.CooldownUntil = &until
}

func (a *Account) MarkError(message string) {
	a.Status = AccountError
	a.ErrorMessage = message
}

func (a *Account) MarkBlocked(message string) {
	a.Status = AccountBlocked
	a.ErrorMessage = message
}

// RegisterCheck records one completed check against this account.
func (a *Account) RegisterCheck(now time.Time) {
	a.ChecksCount++
	a.LastCheckTime = &now
	a.LastUsedAt = &now
}
