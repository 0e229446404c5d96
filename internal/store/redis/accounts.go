package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/crypto"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SaveAccounts stores the full account snapshot, sealed, under a single key.
// The snapshot carries credentials so it never touches Redis in the clear.
func (s *Store) SaveAccounts(ctx context.Context, accounts []*domain.Account) error {
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	sealed, err := crypto.Seal(s.secret, data)
	if err != nil {
		return fmt.Errorf("failed to seal accounts: %w", err)
	}

	if err := s.client.Set(ctx, AccountsKey(), sealed, 0).Err(); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	return nil
}

// LoadAccounts retrieves and unseals the account snapshot. A missing key
// yields an empty slice, not an error.
func (s *Store) LoadAccounts(ctx context.Context) ([]*domain.Account, error) {
	sealed, err := s.client.Get(ctx, AccountsKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*domain.Account{}, nil
		}
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	data, err := crypto.Open(s.secret, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal accounts: %w", err)
	}

	var accounts []*domain.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
	}

	return accounts, nil
}
