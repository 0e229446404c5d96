package domain

import "testing"

func TestBatchProgress(t *testing.T) {
	keys := []Key{
		NewKey("ABCDE-FGHJK-MNPQR-TUVWX-Y2346", ""),
		NewKey("AAAAA-BBBBB-CCCCC-DDDDD-EEEEE", ""),
	}
	batch := NewBatch(keys)

	if got := batch.Progress(); got != 0 {
		t.Errorf("Progress() before results = %v, want 0", got)
	}
	if _, done := batch.CompletedAt(); done {
		t.Error("CompletedAt() should not be set on a fresh batch")
	}

	r1 := NewCheckResult(keys[0])
	r1.MarkValid()
	batch.AddResult(r1)

	if got := batch.Progress(); got != 0.5 {
		t.Errorf("Progress() after 1/2 results = %v, want 0.5", got)
	}
	if _, done := batch.CompletedAt(); done {
		t.Error("CompletedAt() should not be set while results are pending")
	}

	r2 := NewCheckResult(keys[1])
	r2.MarkInvalid()
	batch.AddResult(r2)

	if got := batch.Progress(); got != 1.0 {
		t.Errorf("Progress() after all results = %v, want 1.0", got)
	}
	if _, done := batch.CompletedAt(); !done {
		t.Error("CompletedAt() should be set once every key has an outcome")
	}

	counts := batch.CountByStatus()
	if counts[KeyValid] != 1 || counts[KeyInvalid] != 1 {
		t.Errorf("CountByStatus() = %v, want 1 valid and 1 invalid", counts)
	}
}

func TestBatchResultsCopy(t *testing.T) {
	keys := []Key{NewKey("ABCDE-FGHJK-MNPQR-TUVWX-Y2346", "")}
	batch := NewBatch(keys)

	r := NewCheckResult(keys[0])
	r.MarkUsed()
	batch.AddResult(r)

	results := batch.Results()
	if len(results) != 1 {
		t.Fatalf("Results() returned %d results, want 1", len(results))
	}

	results[0] = nil
	if batch.Results()[0] == nil {
		t.Error("mutating the returned slice must not affect the batch")
	}
}
