package domain

import (
	"sync"
	"time"
)

// KeyStatus is the terminal classification of one key check.
type KeyStatus string

const (
	KeyValid       KeyStatus = "valid"
	KeyUsed        KeyStatus = "used"
	KeyInvalid     KeyStatus = "invalid"
	KeyRegionError KeyStatus = "region_error"
	KeyError       KeyStatus = "error"
	KeyPending     KeyStatus = "pending"
)

// CheckResult is the outcome of checking a single key.
type CheckResult struct {
	Key          Key       `json:"key"`
	Status       KeyStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CheckTime    time.Time `json:"check_time"`
	AccountUsed  string    `json:"account_used,omitempty"`
	RegionUsed   string    `json:"region_used,omitempty"`
	CheckID      string    `json:"check_id,omitempty"`
}

func NewCheckResult(key Key) *CheckResult {
	return &CheckResult{
		Key:       key,
		Status:    KeyPending,
		CheckTime: time.Now(),
	}
}

func (r *CheckResult) MarkValid()          { r.Status = KeyValid }
func (r *CheckResult) MarkUsed()           { r.Status = KeyUsed }
func (r *CheckResult) MarkInvalid()        { r.Status = KeyInvalid }
func (r *CheckResult) MarkRegionError(msg string) {
	r.Status = KeyRegionError
	r.ErrorMessage = msg
}
func (r *CheckResult) MarkError(msg string) {
	r.Status = KeyError
	r.ErrorMessage = msg
}

// Batch tracks a submitted set of keys and their accumulating results.
// AddResult is safe for concurrent use by the jobs of one batch.
type Batch struct {
	mu          sync.Mutex
	keys        []Key
	results     []*CheckResult
	createdAt   time.Time
	completedAt *time.Time
	progress    float64
}

func NewBatch(keys []Key) *Batch {
	return &Batch{
		keys:      keys,
		results:   make([]*CheckResult, 0, len(keys)),
		createdAt: time.Now(),
	}
}

// AddResult appends one outcome and advances progress. The completion
// timestamp is stamped exactly when the last result lands.
func (b *Batch) AddResult(result *CheckResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.results = append(b.results, result)
	b.progress = float64(len(b.results)) / float64(len(b.keys))

	if len(b.results) == len(b.keys) && b.completedAt == nil {
		now := time.Now()
		b.completedAt = &now
	}
}

func (b *Batch) Total() int {
	return len(b.keys)
}

func (b *Batch) Progress() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *Batch) CreatedAt() time.Time {
	return b.createdAt
}

// CompletedAt returns the completion time, or the zero time while running.
func (b *Batch) CompletedAt() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.completedAt == nil {
		return time.Time{}, false
	}
	return *b.completedAt, true
}

// Results returns a point-in-time copy of the accumulated outcomes.
func (b *Batch) Results() []*CheckResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*CheckResult, len(b.results))
	copy(out, b.results)
	return out
}

// CountByStatus tallies accumulated outcomes per terminal status.
func (b *Batch) CountByStatus() map[KeyStatus]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[KeyStatus]int, 5)
	for _, r := range b.results {
		counts[r.Status]++
	}
	return counts
}
