package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/domain"
	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

func testPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	return NewPool(cfg, nil, logger.New("error", false))
}

func TestAcquireEmptyPool(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})

	_, err := pool.Acquire(context.Background())
	if !errors.Is(err, ErrNoAccountAvailable) {
		t.Errorf("Acquire() on empty pool = %v, want ErrNoAccountAvailable", err)
	}
}

func TestAcquireRoundRobin(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})
	ctx := context.Background()

	a1, _ := pool.Add(ctx, "one@example.com", "pw")
	a2, _ := pool.Add(ctx, "two@example.com", "pw")
	a3, _ := pool.Add(ctx, "three@example.com", "pw")

	got1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pool.Release(ctx, got1, true)

	got2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pool.Release(ctx, got2, true)

	got3, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pool.Release(ctx, got3, true)

	want := []string{a1.ID, a2.ID, a3.ID}
	got := []string{got1.ID, got2.ID, got3.ID}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation order = %v, want %v", got, want)
		}
	}
}

func TestAcquireSkipsInUse(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})
	ctx := context.Background()

	pool.Add(ctx, "one@example.com", "pw")
	pool.Add(ctx, "two@example.com", "pw")

	first, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	second, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if first.ID == second.ID {
		t.Error("Acquire() handed out the same account twice")
	}

	// Both busy now
	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrNoAccountAvailable) {
		t.Errorf("Acquire() with all accounts in use = %v, want ErrNoAccountAvailable", err)
	}
}

func TestReleaseCooldownAtLimit(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 2, CooldownPeriod: time.Hour})
	ctx := context.Background()

	acc, _ := pool.Add(ctx, "one@example.com", "pw")

	for i := 0; i < 2; i++ {
		got, err := pool.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i+1, err)
		}
		pool.Release(ctx, got, true)
	}

	if acc.Status != domain.AccountCooldown {
		t.Errorf("account status after hitting limit = %v, want cooldown", acc.Status)
	}
	if acc.CooldownUntil == nil {
		t.Fatal("CooldownUntil not set")
	}

	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrNoAccountAvailable) {
		t.Errorf("Acquire() during cooldown = %v, want ErrNoAccountAvailable", err)
	}
}

func TestAcquireAfterCooldownExpiry(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 1, CooldownPeriod: time.Hour})
	ctx := context.Background()

	base := time.Now()
	pool.now = func() time.Time { return base }

	acc, _ := pool.Add(ctx, "one@example.com", "pw")

	got, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pool.Release(ctx, got, true)

	if acc.Status != domain.AccountCooldown {
		t.Fatalf("account status = %v, want cooldown", acc.Status)
	}

	// ChecksCount is still at the limit, so expiry alone is not enough.
	pool.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrNoAccountAvailable) {
		t.Fatalf("Acquire() at check limit = %v, want ErrNoAccountAvailable", err)
	}
	// The expired cooldown itself was cleared by the eligibility scan.
	if acc.Status != domain.AccountAvailable {
		t.Errorf("expired cooldown not cleared, status = %v", acc.Status)
	}

	if err := pool.ResetChecks(ctx, acc.ID); err != nil {
		t.Fatalf("ResetChecks() error = %v", err)
	}
	if _, err := pool.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after reset = %v, want success", err)
	}
}

func TestReleaseWithoutCooldown(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 1, CooldownPeriod: time.Hour})
	ctx := context.Background()

	acc, _ := pool.Add(ctx, "one@example.com", "pw")

	got, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pool.Release(ctx, got, false)

	if acc.Status != domain.AccountAvailable {
		t.Errorf("account status = %v, want available when cooldown is off", acc.Status)
	}
}

func TestAddIsIdempotentByEmail(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})
	ctx := context.Background()

	first, created := pool.Add(ctx, "one@example.com", "pw")
	if !created {
		t.Fatal("first Add() should create")
	}
	second, created := pool.Add(ctx, "one@example.com", "other")
	if created {
		t.Error("second Add() with same email should not create")
	}
	if first.ID != second.ID {
		t.Error("second Add() should return the existing account")
	}
	if len(pool.List()) != 1 {
		t.Errorf("pool size = %d, want 1", len(pool.List()))
	}
}

func TestMarkErrorExcludesFromRotation(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})
	ctx := context.Background()

	acc, _ := pool.Add(ctx, "one@example.com", "pw")
	if err := pool.MarkError(ctx, acc.ID, "login failed"); err != nil {
		t.Fatalf("MarkError() error = %v", err)
	}

	if _, err := pool.Acquire(ctx); !errors.Is(err, ErrNoAccountAvailable) {
		t.Errorf("Acquire() with only an errored account = %v, want ErrNoAccountAvailable", err)
	}

	if err := pool.MarkError(ctx, "acc_missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkError() unknown id = %v, want ErrNotFound", err)
	}
}

func TestReplaceNormalizesState(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	pool.Replace([]*domain.Account{
		{ID: "a", Email: "a@example.com", Status: domain.AccountCooldown, CooldownUntil: &past, IsActive: true},
		{ID: "b", Email: "b@example.com", Status: domain.AccountCooldown, CooldownUntil: &future, IsActive: true},
		{ID: "c", Email: "c@example.com", Status: domain.AccountInUse, IsActive: true},
	})

	list := pool.List()
	byID := make(map[string]*domain.Account, len(list))
	for _, acc := range list {
		byID[acc.ID] = acc
	}

	if byID["a"].Status != domain.AccountAvailable {
		t.Errorf("expired cooldown on load: status = %v, want available", byID["a"].Status)
	}
	if byID["b"].Status != domain.AccountCooldown {
		t.Errorf("live cooldown on load: status = %v, want cooldown", byID["b"].Status)
	}
	if byID["c"].Status != domain.AccountAvailable {
		t.Errorf("in_use on load: status = %v, want available", byID["c"].Status)
	}
}

func TestStatistics(t *testing.T) {
	pool := testPool(t, Config{MaxChecksPerAccount: 10, CooldownPeriod: time.Hour})
	ctx := context.Background()

	pool.Add(ctx, "one@example.com", "pw")
	b, _ := pool.Add(ctx, "two@example.com", "pw")
	pool.MarkBlocked(ctx, b.ID, "locked out")

	got, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	pool.Release(ctx, got, true)

	stats := pool.Statistics()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.Available != 1 {
		t.Errorf("Available = %d, want 1", stats.Available)
	}
	if stats.Blocked != 1 {
		t.Errorf("Blocked = %d, want 1", stats.Blocked)
	}
	if stats.TotalChecks != 1 {
		t.Errorf("TotalChecks = %d, want 1", stats.TotalChecks)
	}
}
