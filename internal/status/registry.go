package status

import (
	"strings"
	"sync"
	"time"

	"github.com/Miroshka000/Microsoft-Key-Checker/internal/logger"
)

// Check id grammar: a stable id looks like "check_<KEY>_<unix>[_<suffix>]",
// a provisional one "temp_check_<KEY>_<unix>". A provisional id is issued
// before the stable id is known to the caller; both must resolve to the same
// status entry.
const (
	canonicalPrefix   = "check_"
	provisionalPrefix = "temp_check_"

	// DefaultRetention is how long entries live without updates.
	DefaultRetention = time.Hour
)

// View is the resolved, caller-facing form of one entry.
type View struct {
	Status       string         `json:"status"`
	Stage        string         `json:"stage,omitempty"`
	Progress     int            `json:"progress"`
	Message      string         `json:"message,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
}

// NotFound is what polling an unknown id yields. It is a normal outcome.
func NotFound() View {
	return View{Status: "not_found", Message: "check not found"}
}

type entry struct {
	stage        string
	progress     int
	message      string
	isError      bool
	errorMessage string
	result       map[string]any
	lastUpdate   time.Time
	aliasFor     string // set => every other field is meaningless
}

func (e *entry) view() View {
	v := View{
		Stage:    e.stage,
		Progress: e.progress,
		Message:  e.message,
	}
	switch {
	case e.isError:
		v.Status = "error"
		v.ErrorMessage = e.errorMessage
	case e.result != nil:
		v.Status = "completed"
		v.Result = e.result
	default:
		v.Status = "in_progress"
	}
	return v
}

// Registry is a mutation-safe map from check id to live status, with alias
// resolution and staleness eviction.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	retention time.Duration
	logger    logger.Logger
	now       func() time.Time
}

func NewRegistry(retention time.Duration, log logger.Logger) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		entries:   make(map[string]*entry),
		retention: retention,
		logger:    log,
		now:       time.Now,
	}
}

// Update records progress for a check id. Provisional ids are redirected to
// their canonical entry and stored as aliases. Concurrent updates to the same
// canonical id are last-write-wins. Stale entries are swept on every update.
func (r *Registry) Update(id, stage string, progress int, message string, isError bool, result map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	canonical := r.normalizeLocked(id)
	if canonical != id {
		r.entries[id] = &entry{aliasFor: canonical}
		r.logger.Debug("aliased check id",
			logger.String("from", id),
			logger.String("to", canonical))
	}

	e, ok := r.entries[canonical]
	if !ok || e.aliasFor != "" {
		e = &entry{}
		r.entries[canonical] = e
	}
	e.stage = stage
	e.progress = progress
	e.message = message
	e.isError = isError
	if isError {
		e.errorMessage = message
	}
	if result != nil {
		e.result = result
	}
	e.lastUpdate = r.now()

	r.evictLocked()
}

// Get resolves id to its current status. Aliases are followed one hop. An
// unknown id falls back to a prefix match over canonical ids before
// resolving to not_found.
func (r *Registry) Get(id string) View {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		if e.aliasFor != "" {
			target, ok := r.entries[e.aliasFor]
			if !ok || target.aliasFor != "" {
				// Dangling alias: target evicted (or itself an alias, which
				// normalization never produces).
				return NotFound()
			}
			return target.view()
		}
		return e.view()
	}

	// Callers sometimes reconstruct ids with a different timestamp or suffix.
	// Fall back to matching on the key part.
	if keyPart := extractKeyPart(id); keyPart != "" {
		if canonical := r.matchByKeyPartLocked(keyPart); canonical != "" {
			r.logger.Debug("fuzzy-matched check id",
				logger.String("requested", id),
				logger.String("matched", canonical))
			r.entries[id] = &entry{aliasFor: canonical}
			return r.entries[canonical].view()
		}
	}

	return NotFound()
}

// normalizeLocked maps a provisional id onto its stable form. When a canonical
// entry for the same key already exists it wins, so that provisional and
// stable updates converge on one entry.
func (r *Registry) normalizeLocked(id string) string {
	if !strings.HasPrefix(id, provisionalPrefix) {
		return id
	}
	rest := strings.TrimPrefix(id, provisionalPrefix)
	keyPart, _, _ := strings.Cut(rest, "_")
	if keyPart == "" {
		return id
	}
	if canonical := r.matchByKeyPartLocked(keyPart); canonical != "" {
		return canonical
	}
	return canonicalPrefix + rest
}

func (r *Registry) matchByKeyPartLocked(keyPart string) string {
	prefix := canonicalPrefix + keyPart
	for id, e := range r.entries {
		if e.aliasFor == "" && strings.HasPrefix(id, prefix) {
			return id
		}
	}
	return ""
}

// extractKeyPart pulls the key component out of either id form.
func extractKeyPart(id string) string {
	switch {
	case strings.HasPrefix(id, provisionalPrefix):
		id = strings.TrimPrefix(id, provisionalPrefix)
	case strings.HasPrefix(id, canonicalPrefix):
		id = strings.TrimPrefix(id, canonicalPrefix)
	default:
		return ""
	}
	keyPart, _, _ := strings.Cut(id, "_")
	return keyPart
}

// evictLocked drops entries idle past the retention window. Alias entries are
// kept; ones whose target was evicted resolve to not_found.
func (r *Registry) evictLocked() {
	cutoff := r.now().Add(-r.retention)
	for id, e := range r.entries {
		if e.aliasFor != "" {
			continue
		}
		if e.lastUpdate.Before(cutoff) {
			delete(r.entries, id)
			r.logger.Debug("evicted stale check status", logger.String("id", id))
		}
	}
}

// Len reports the number of stored entries, aliases included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
