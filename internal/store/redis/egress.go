package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SaveEgressServices stores the egress service snapshot under a single key.
func (s *Store) SaveEgressServices(ctx context.Context, services []*domain.EgressService) error {
	data, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("failed to marshal egress services: %w", err)
	}

	if err := s.client.Set(ctx, EgressKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save egress services: %w", err)
	}

	return nil
}

// LoadEgressServices retrieves the egress service snapshot. A missing key
// yields an empty slice, not an error.
func (s *Store) LoadEgressServices(ctx context.Context) ([]*domain.EgressService, error) {
	data, err := s.client.Get(ctx, EgressKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*domain.EgressService{}, nil
		}
		return nil, fmt.Errorf("failed to get egress services: %w", err)
	}

	var services []*domain.EgressService
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, fmt.Errorf("failed to unmarshal egress services: %w", err)
	}

	return services, nil
}
