package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/accounts"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/checker"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/config"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/egress"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/httpserver/deps"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/redis"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/scheduler"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/sources/egressfile"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/status"
	redisstore "github.com/Miroshka000/Microsoft-Key-Checker/internal/store/redis"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	accounts    *accounts.Pool
	egress      *egress.Pool
	snapshotter *scheduler.Snapshotter
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient, cfg.EncryptionSecret)

	accountPool := accounts.NewPool(accounts.Config{
		MaxChecksPerAccount: cfg.MaxChecksPerAccount,
		CooldownPeriod:      cfg.CooldownPeriod,
	}, store, loggerClient)

	egressPool := egress.NewPool(egress.DefaultRegistry(), store, loggerClient,
		cfg.EgressConnectTimeout, cfg.ProbeTimeout)

	loadState(cfg, store, accountPool, egressPool, loggerClient)

	statuses := status.NewRegistry(cfg.StatusRetention, loggerClient)

	chk := checker.New(
		accountPool,
		egressPool,
		statuses,
		checker.NewScriptVerifierFactory(cfg.VerifierCommand, cfg.VerifierTimeout),
		checker.Config{
			ParallelChecks: cfg.ParallelChecks,
			CheckDelay:     cfg.CheckDelay,
			EgressEnabled:  cfg.EgressEnabled,
			EgressService:  cfg.EgressDefaultService,
		},
		loggerClient,
	)

	snapshotter := scheduler.NewSnapshotter(accountPool, egressPool, store,
		loggerClient, cfg.SnapshotInterval)

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		TrustProxy:       cfg.TrustProxy,
		RateBurst:        cfg.RateBurst,
		RateRefillPerMin: cfg.RateRefillPerMin,
		RedisClient:      redisClient,
		Accounts:         accountPool,
		Egress:           egressPool,
		Checker:          chk,
		Statuses:         statuses,
		EgressEnabled:    cfg.EgressEnabled,
		MaxKeysPerBatch:  cfg.MaxKeysPerBatch,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		accounts:    accountPool,
		egress:      egressPool,
		snapshotter: snapshotter,
	}
}

// loadState restores persisted pool state. A broken snapshot degrades to an
// empty pool rather than blocking startup.
func loadState(cfg *config.Config, store *redisstore.Store, accountPool *accounts.Pool, egressPool *egress.Pool, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved, err := store.LoadAccounts(ctx)
	if err != nil {
		log.Warn("failed to load accounts from redis, starting empty",
			logger.Error(err))
	} else {
		accountPool.Replace(saved)
		log.Info("accounts restored", logger.Int("count", len(saved)))
	}

	services, err := store.LoadEgressServices(ctx)
	if err != nil {
		log.Warn("failed to load egress services from redis",
			logger.Error(err))
	}
	if len(services) == 0 {
		services = seedEgress(cfg, log)
	}
	egressPool.Replace(services)
	log.Info("egress services loaded", logger.Int("count", len(services)))
}

func seedEgress(cfg *config.Config, log logger.Logger) []*domain.EgressService {
	if cfg.EgressSeedFile != "" {
		seeded, err := egressfile.NewLoader(cfg.EgressSeedFile).Load()
		if err == nil {
			log.Info("egress services seeded from file",
				logger.String("file", cfg.EgressSeedFile))
			return seeded
		}
		log.Warn("failed to load egress seed file, using defaults",
			logger.String("file", cfg.EgressSeedFile),
			logger.Error(err))
	}
	return egressfile.Default()
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Microsoft-Key-Checker %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.snapshotter.Start(ctx)
	a.logger.Info("snapshotter started",
		logger.Duration("interval", a.cfg.SnapshotInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.snapshotter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	// One last flush so cooldown timers survive the restart
	a.snapshotter.Flush(shutdownCtx)

	// Leave no tunnel behind
	if err := a.egress.Disconnect(shutdownCtx); err != nil {
		a.logger.Warnf("failed to disconnect egress: %v", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Microsoft-Key-Checker stopped cleanly")
	return nil
}
