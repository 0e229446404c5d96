package redis

import (
	"github.com/redis/go-redis/v9"
)

// Store handles Redis persistence for account and egress snapshots.
// Account data is sealed with the configured secret before it is written.
type Store struct {
	client *redis.Client
	secret string
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, secret string) *Store {
	return &Store{
		client: client,
		secret: secret,
	}
}
