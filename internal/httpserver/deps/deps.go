package deps

import (
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/accounts"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/checker"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/egress"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/status"
	"github.com/redis/go-redis/v9"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	TrustProxy       bool // true if running behind a trusted reverse proxy
	RateBurst        int
	RateRefillPerMin int

	RedisClient *redis.Client // Redis client connection (nil in degraded mode)

	Accounts *accounts.Pool   // Microsoft account pool
	Egress   *egress.Pool     // VPN egress pool
	Checker  *checker.Checker // check orchestrator
	Statuses *status.Registry // per-check status registry

	EgressEnabled   bool // route key checks through the egress pool
	MaxKeysPerBatch int  // upper bound on a single batch submission
}

// Now returns TimeNow() when set, time.Now otherwise.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
