package redis

const (
	// KeyAccounts holds the encrypted snapshot of the account pool
	KeyAccounts = "mkc:accounts"
	// KeyEgress holds the snapshot of configured egress services
	KeyEgress = "mkc:egress:services"
)

// AccountsKey returns the Redis key for the account snapshot
func AccountsKey() string {
	return KeyAccounts
}

// EgressKey returns the Redis key for the egress snapshot
func EgressKey() string {
	return KeyEgress
}
