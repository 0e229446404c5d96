package status

import (
	"testing"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(time.Hour, logger.New("error", false))
}

func TestUpdateAndGet(t *testing.T) {
	r := testRegistry(t)

	r.Update("check_ABC_100_1234", "login", 30, "logging in", false, nil)

	view := r.Get("check_ABC_100_1234")
	if view.Status != "in_progress" {
		t.Errorf("Status = %q, want in_progress", view.Status)
	}
	if view.Stage != "login" || view.Progress != 30 {
		t.Errorf("view = %+v, want stage=login progress=30", view)
	}
}

func TestGetUnknownID(t *testing.T) {
	r := testRegistry(t)

	view := r.Get("check_MISSING_1_1")
	if view.Status != "not_found" {
		t.Errorf("Status = %q, want not_found", view.Status)
	}

	// Garbage ids are a normal outcome too
	if got := r.Get("garbage"); got.Status != "not_found" {
		t.Errorf("Status = %q, want not_found", got.Status)
	}
}

func TestCompletedView(t *testing.T) {
	r := testRegistry(t)

	r.Update("check_ABC_100_1234", "completed", 100, "done", false,
		map[string]any{"status": "valid"})

	view := r.Get("check_ABC_100_1234")
	if view.Status != "completed" {
		t.Errorf("Status = %q, want completed", view.Status)
	}
	if view.Result["status"] != "valid" {
		t.Errorf("Result = %v, want status=valid", view.Result)
	}
}

func TestErrorView(t *testing.T) {
	r := testRegistry(t)

	r.Update("check_ABC_100_1234", "error", 0, "login failed", true, nil)

	view := r.Get("check_ABC_100_1234")
	if view.Status != "error" {
		t.Errorf("Status = %q, want error", view.Status)
	}
	if view.ErrorMessage != "login failed" {
		t.Errorf("ErrorMessage = %q, want login failed", view.ErrorMessage)
	}
}

func TestProvisionalAliasesOntoCanonical(t *testing.T) {
	r := testRegistry(t)

	// The stable id is updated first, then progress arrives under the
	// provisional id issued before the stable one was known.
	r.Update("check_ABC_100_1234", "init", 5, "starting", false, nil)
	r.Update("temp_check_ABC_100", "login", 30, "logging in", false, nil)

	canonical := r.Get("check_ABC_100_1234")
	provisional := r.Get("temp_check_ABC_100")

	if canonical.Status != provisional.Status ||
		canonical.Stage != provisional.Stage ||
		canonical.Progress != provisional.Progress {
		t.Errorf("canonical and provisional views diverged: %+v vs %+v", canonical, provisional)
	}
	if canonical.Stage != "login" || canonical.Progress != 30 {
		t.Errorf("canonical view = %+v, want the provisional update applied", canonical)
	}
}

func TestProvisionalWithoutCanonical(t *testing.T) {
	r := testRegistry(t)

	r.Update("temp_check_ABC_100", "init", 5, "starting", false, nil)

	if got := r.Get("temp_check_ABC_100"); got.Status != "in_progress" {
		t.Errorf("Status = %q, want in_progress", got.Status)
	}
	// The synthesized canonical form resolves to the same entry
	if got := r.Get("check_ABC_100"); got.Status != "in_progress" {
		t.Errorf("canonical form Status = %q, want in_progress", got.Status)
	}
}

func TestFuzzyMatchBySuffixVariation(t *testing.T) {
	r := testRegistry(t)

	r.Update("check_ABC_100_1234", "submit", 70, "submitting", false, nil)

	// Same key part, different timestamp and suffix
	view := r.Get("check_ABC_999_5678")
	if view.Stage != "submit" {
		t.Errorf("fuzzy lookup stage = %q, want submit", view.Stage)
	}

	// The fuzzy hit installs an alias; later Gets stay consistent
	again := r.Get("check_ABC_999_5678")
	if again.Stage != view.Stage || again.Progress != view.Progress {
		t.Errorf("repeated fuzzy lookup diverged: %+v vs %+v", again, view)
	}
}

func TestLastWriteWins(t *testing.T) {
	r := testRegistry(t)

	r.Update("check_ABC_100_1234", "login", 30, "first", false, nil)
	r.Update("check_ABC_100_1234", "submit", 70, "second", false, nil)

	view := r.Get("check_ABC_100_1234")
	if view.Stage != "submit" || view.Message != "second" {
		t.Errorf("view = %+v, want the later update", view)
	}
}

func TestEviction(t *testing.T) {
	r := testRegistry(t)

	base := time.Now()
	r.now = func() time.Time { return base }

	r.Update("check_OLD_100_1234", "completed", 100, "done", false,
		map[string]any{"status": "valid"})
	r.Update("temp_check_OLD_100", "completed", 100, "done", false, nil)

	// Two hours later a new check triggers the sweep
	r.now = func() time.Time { return base.Add(2 * time.Hour) }
	r.Update("check_NEW_200_1234", "init", 5, "starting", false, nil)

	if got := r.Get("check_OLD_100_1234"); got.Status != "not_found" {
		t.Errorf("stale entry Status = %q, want not_found", got.Status)
	}
	// The alias survives the sweep but its target is gone
	if got := r.Get("temp_check_OLD_100"); got.Status != "not_found" {
		t.Errorf("dangling alias Status = %q, want not_found", got.Status)
	}
	if got := r.Get("check_NEW_200_1234"); got.Status != "in_progress" {
		t.Errorf("fresh entry Status = %q, want in_progress", got.Status)
	}
}
