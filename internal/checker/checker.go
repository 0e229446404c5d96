package checker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/accounts"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/egress"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/status"
)

// Check stages emitted into the status registry, with their progress marks.
const (
	StageInit       = "init"
	StageEgress     = "egress_connect"
	StageAccount    = "account_acquire"
	StageLogin      = "login"
	StageNavigate   = "navigate"
	StageSubmit     = "submit"
	StageProcessing = "processing"
	StageCleanup    = "cleanup"
	StageCompleted  = "completed"
	StageError      = "error"
)

// ErrBatchNotFound is returned when a batch id is unknown.
var ErrBatchNotFound = errors.New("batch not found")

// Config tunes the orchestrator.
type Config struct {
	ParallelChecks int           // semaphore capacity for batch jobs
	CheckDelay     time.Duration // pause after each job before freeing its slot
	EgressEnabled  bool
	EgressService  string // service used for region-pinned keys
}

// Checker runs key checks against the account and egress pools with bounded
// concurrency. A single job's failure never aborts its siblings; every
// submitted key produces exactly one outcome.
type Checker struct {
	accounts    *accounts.Pool
	egress      *egress.Pool
	statuses    *status.Registry
	newVerifier VerifierFactory
	cfg         Config
	logger      logger.Logger

	mu       sync.Mutex
	batches  map[string]*domain.Batch
	batchSeq int

	now func() time.Time
}

func New(accts *accounts.Pool, eg *egress.Pool, statuses *status.Registry, factory VerifierFactory, cfg Config, log logger.Logger) *Checker {
	if cfg.ParallelChecks <= 0 {
		cfg.ParallelChecks = 5
	}
	return &Checker{
		accounts:    accts,
		egress:      eg,
		statuses:    statuses,
		newVerifier: factory,
		cfg:         cfg,
		logger:      log,
		batches:     make(map[string]*domain.Batch),
		now:         time.Now,
	}
}

// generateCheckID derives the stable id for a check from the normalized key,
// the submission time and a random suffix.
func (c *Checker) generateCheckID(key domain.Key, now time.Time) string {
	return fmt.Sprintf("check_%s_%d_%04d", key.Normalized(), now.Unix(), 1000+rand.Intn(9000))
}

// provisionalID is the id a caller can compute before the stable one is
// returned to it.
func provisionalID(key domain.Key, now time.Time) string {
	return fmt.Sprintf("temp_check_%s_%d", key.Normalized(), now.Unix())
}

// CheckKey checks a single key synchronously, emitting staged progress into
// the status registry. A key failing the format check is classified Invalid
// without consuming an account.
func (c *Checker) CheckKey(ctx context.Context, key domain.Key) *domain.CheckResult {
	if !key.IsValidFormat() {
		result := domain.NewCheckResult(key)
		result.MarkInvalid()
		c.logger.Info("rejected key with invalid format", logger.String("key", key.Raw))
		return result
	}
	return c.check(ctx, key, nil, key.Region)
}

// CheckStatus resolves a check id to its live staged status.
func (c *Checker) CheckStatus(checkID string) status.View {
	return c.statuses.Get(checkID)
}

// check runs the full per-key flow. When acc is nil an account is acquired
// from the pool and released afterwards; otherwise the caller owns the
// account's lifecycle around this call.
func (c *Checker) check(ctx context.Context, key domain.Key, acc *domain.Account, region string) *domain.CheckResult {
	result := domain.NewCheckResult(key)
	now := c.now()
	checkID := c.generateCheckID(key, now)
	tempID := provisionalID(key, now)
	result.CheckID = checkID

	// Canonical id first so the provisional one aliases onto it.
	emit := func(stage string, progress int, message string, isError bool, payload map[string]any) {
		c.statuses.Update(checkID, stage, progress, message, isError, payload)
		c.statuses.Update(tempID, stage, progress, message, isError, payload)
	}
	fail := func(stage string, progress int, message string) *domain.CheckResult {
		result.MarkError(message)
		emit(stage, progress, message, true, nil)
		return result
	}

	emit(StageInit, 5, "initializing check", false, nil)
	c.logger.Info("starting key check",
		logger.String("key", key.Formatted()),
		logger.String("check_id", checkID))

	if region == "" {
		region = key.Region
	}

	connected := false
	defer func() {
		// Teardown is best effort on every path.
		if connected {
			_ = c.egress.Disconnect(ctx)
		}
	}()

	if region != "" && c.cfg.EgressEnabled {
		emit(StageEgress, 10, "connecting egress region "+region, false, nil)
		if err := c.egress.Connect(ctx, c.cfg.EgressService, region); err != nil {
			return fail(StageEgress, 15, fmt.Sprintf("failed to connect egress region %s: %v", region, err))
		}
		connected = true
		result.RegionUsed = region
	}

	fromPool := false
	if acc == nil {
		emit(StageAccount, 15, "acquiring account", false, nil)
		var err error
		acc, err = c.accounts.Acquire(ctx)
		if err != nil {
			return fail(StageAccount, 15, "no available accounts")
		}
		fromPool = true
	}
	result.AccountUsed = acc.Email
	defer func() {
		if fromPool {
			c.accounts.Release(ctx, acc, true)
		}
	}()

	v := c.newVerifier()
	defer func() { _ = v.Close() }()

	emit(StageLogin, 30, "signing in to account", false, nil)
	if err := v.Login(ctx, acc); err != nil {
		return fail(StageLogin, 35, fmt.Sprintf("failed to login: %v", err))
	}

	emit(StageNavigate, 50, "opening redeem page", false, nil)
	if err := v.Navigate(ctx); err != nil {
		return fail(StageNavigate, 55, fmt.Sprintf("failed to open redeem page: %v", err))
	}

	emit(StageSubmit, 70, "submitting key", false, nil)
	verdict, err := v.CheckKey(ctx, key.Formatted())
	if err != nil {
		return fail(StageSubmit, 75, fmt.Sprintf("failed to check key: %v", err))
	}

	emit(StageProcessing, 90, "interpreting result", false, nil)
	switch verdict.Status {
	case VerifySuccess:
		result.MarkValid()
	case VerifyUsed:
		result.MarkUsed()
	case VerifyInvalid:
		result.MarkInvalid()
	case VerifyRegionError, VerifyDisabled:
		result.MarkRegionError(verdict.Message)
	case VerifyUnknown:
		result.MarkError("unknown key status: " + verdict.Message)
	default:
		result.MarkError(verdict.Message)
	}

	emit(StageCleanup, 95, "releasing resources", false, nil)
	if err := v.Logout(ctx); err != nil {
		c.logger.Warn("logout failed", logger.Error(err))
	}

	emit(StageCompleted, 100, "check completed", false, map[string]any{
		"key":           key.Formatted(),
		"status":        string(result.Status),
		"error_message": result.ErrorMessage,
		"region_used":   result.RegionUsed,
		"message":       verdict.Message,
	})

	c.logger.Info("key check completed",
		logger.String("key", key.Formatted()),
		logger.String("status", string(result.Status)))
	return result
}

// CheckBatch schedules one job per key and returns immediately with the batch
// id. Regions, when given, are matched to keys by index and take precedence
// over each key's own region hint.
func (c *Checker) CheckBatch(keys []domain.Key, regions []string) string {
	batch := domain.NewBatch(keys)

	c.mu.Lock()
	c.batchSeq++
	batchID := fmt.Sprintf("batch_%d_%d", c.now().Unix(), c.batchSeq)
	c.batches[batchID] = batch
	c.mu.Unlock()

	go c.processBatch(batchID, batch, keys, regions)

	c.logger.Info("started batch check",
		logger.String("batch_id", batchID),
		logger.Int("keys", len(keys)))
	return batchID
}

// processBatch runs the batch to completion in the background. Submission
// contexts are request-scoped, so jobs run under their own context.
func (c *Checker) processBatch(batchID string, batch *domain.Batch, keys []domain.Key, regions []string) {
	ctx := context.Background()

	sem := make(chan struct{}, c.cfg.ParallelChecks)
	var wg sync.WaitGroup

	for i, key := range keys {
		region := ""
		if i < len(regions) {
			region = regions[i]
		}

		wg.Add(1)
		go func(key domain.Key, region string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			c.runJob(ctx, batch, key, region)
		}(key, region)
	}

	wg.Wait()
	c.logger.Info("batch check completed",
		logger.String("batch_id", batchID),
		logger.Int("keys", len(keys)))
}

// runJob is one batch job's critical section. Failures are captured as the
// job's outcome; nothing escalates.
func (c *Checker) runJob(ctx context.Context, batch *domain.Batch, key domain.Key, region string) {
	if !key.IsValidFormat() {
		result := domain.NewCheckResult(key)
		result.MarkInvalid()
		batch.AddResult(result)
		return
	}

	acc, err := c.accounts.Acquire(ctx)
	if err != nil {
		result := domain.NewCheckResult(key)
		result.MarkError("no available accounts")
		batch.AddResult(result)
		return
	}

	result := c.check(ctx, key, acc, region)
	c.accounts.Release(ctx, acc, true)
	batch.AddResult(result)

	// Throttle burst rate before freeing the concurrency slot.
	if c.cfg.CheckDelay > 0 {
		time.Sleep(c.cfg.CheckDelay)
	}
}

// BatchStatus is the aggregate view of one batch.
type BatchStatus struct {
	BatchID          string  `json:"batch_id"`
	Status           string  `json:"status"`
	Progress         float64 `json:"progress"`
	TotalKeys        int     `json:"total_keys"`
	ProcessedKeys    int     `json:"processed_keys"`
	ValidCount       int     `json:"valid_count"`
	UsedCount        int     `json:"used_count"`
	InvalidCount     int     `json:"invalid_count"`
	RegionErrorCount int     `json:"region_error_count"`
	ErrorCount       int     `json:"error_count"`
}

// Batch returns the raw batch record.
func (c *Checker) Batch(batchID string) (*domain.Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.batches[batchID]
	return b, ok
}

// Status summarizes a batch's progress and per-status counts.
func (c *Checker) Status(batchID string) (BatchStatus, error) {
	batch, ok := c.Batch(batchID)
	if !ok {
		return BatchStatus{}, ErrBatchNotFound
	}

	counts := batch.CountByStatus()
	s := BatchStatus{
		BatchID:          batchID,
		Status:           "in_progress",
		Progress:         batch.Progress(),
		TotalKeys:        batch.Total(),
		ProcessedKeys:    len(batch.Results()),
		ValidCount:       counts[domain.KeyValid],
		UsedCount:        counts[domain.KeyUsed],
		InvalidCount:     counts[domain.KeyInvalid],
		RegionErrorCount: counts[domain.KeyRegionError],
		ErrorCount:       counts[domain.KeyError],
	}
	if _, done := batch.CompletedAt(); done {
		s.Status = "completed"
	}
	return s, nil
}

// Results returns the outcomes accumulated so far, in completion order.
func (c *Checker) Results(batchID string) ([]*domain.CheckResult, error) {
	batch, ok := c.Batch(batchID)
	if !ok {
		return nil, ErrBatchNotFound
	}
	return batch.Results(), nil
}
