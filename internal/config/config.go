package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Key checking
	ParallelChecks      int           // max concurrent checks inside a batch
	CheckDelay          time.Duration // pause after each check before freeing the slot
	MaxKeysPerBatch     int           // upper bound on a single batch submission
	MaxChecksPerAccount int           // checks before an account is put on cooldown
	CooldownPeriod      time.Duration // how long a saturated account rests
	StatusRetention     time.Duration // how long check statuses are kept

	// Egress (VPN)
	EgressEnabled        bool          // false => keys are checked from the local network
	EgressDefaultService string        // service used when a key carries a region hint
	EgressConnectTimeout time.Duration // per connect/disconnect command budget
	EgressSeedFile       string        // optional YAML with service/region definitions
	ProbeTimeout         time.Duration // budget for the external IP probe

	// Verifier
	VerifierCommand string        // external command that performs the actual key check
	VerifierTimeout time.Duration // per-check budget for the command

	// Secrets
	EncryptionSecret string // seals account credentials at rest

	SnapshotInterval time.Duration // periodic pool persistence flush

	// Redis
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           // warn after this many attempts

	// Rate limiting on check submission
	RateBurst        int
	RateRefillPerMin int
	TrustProxy       bool
}

func Load() *Config {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		ListenPort:      getenv("MKC_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MKC_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("MKC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MKC_PRETTY_LOG", false),

		ParallelChecks:      getenvInt("MKC_PARALLEL_CHECKS", 5),
		CheckDelay:          mustDuration("MKC_CHECK_DELAY", time.Second),
		MaxKeysPerBatch:     getenvInt("MKC_MAX_KEYS_PER_BATCH", 1000),
		MaxChecksPerAccount: getenvInt("MKC_MAX_CHECKS_PER_ACCOUNT", 10),
		CooldownPeriod:      mustDuration("MKC_COOLDOWN_PERIOD", time.Hour),
		StatusRetention:     mustDuration("MKC_STATUS_RETENTION", time.Hour),

		EgressEnabled:        mustBool("MKC_EGRESS_ENABLED", true),
		EgressDefaultService: getenv("MKC_EGRESS_DEFAULT_SERVICE", "Custom VPN"),
		EgressConnectTimeout: mustDuration("MKC_EGRESS_CONNECT_TIMEOUT", 30*time.Second),
		EgressSeedFile:       getenv("MKC_EGRESS_SEED_FILE", ""),
		ProbeTimeout:         mustDuration("MKC_PROBE_TIMEOUT", 5*time.Second),

		VerifierCommand: getenv("MKC_VERIFIER_COMMAND", ""),
		VerifierTimeout: mustDuration("MKC_VERIFIER_TIMEOUT", 2*time.Minute),

		EncryptionSecret: requireEnv("MKC_ENCRYPTION_SECRET"),

		SnapshotInterval: mustDuration("MKC_SNAPSHOT_INTERVAL", 5*time.Minute),

		RedisAddr:           requireEnv("MKC_REDIS_ADDR"),
		RedisUser:           getenv("MKC_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("MKC_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MKC_REDIS_DB", 0),
		RedisDT:             mustDuration("MKC_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("MKC_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("MKC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("MKC_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("MKC_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("MKC_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("MKC_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("MKC_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("MKC_REDIS_WARN_THRESHOLD", 3),

		RateBurst:        getenvInt("MKC_RATE_BURST", 10),
		RateRefillPerMin: getenvInt("MKC_RATE_REFILL_PER_MIN", 30),
		TrustProxy:       mustBool("MKC_TRUST_PROXY", false),
	}

	if cfg.ParallelChecks < 1 {
		panic(fmt.Sprintf("❌ FATAL: MKC_PARALLEL_CHECKS must be >= 1, got %d", cfg.ParallelChecks))
	}
	if cfg.MaxChecksPerAccount < 1 {
		panic(fmt.Sprintf("❌ FATAL: MKC_MAX_CHECKS_PER_ACCOUNT must be >= 1, got %d", cfg.MaxChecksPerAccount))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.EncryptionSecret = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
