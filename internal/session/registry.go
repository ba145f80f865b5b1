package session

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/progress"
)

// Analysis status values reported by CheckStatus.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusNotFound  = "not_found"
)

// Worker is the handle the registry keeps per analysis. The goroutine
// running an analysis sets done when it exits.
type Worker struct {
	AnalysisID string

	mu   sync.Mutex
	done bool
}

// Finish marks the worker as exited.
func (w *Worker) Finish() {
	w.mu.Lock()
	w.done = true
	w.mu.Unlock()
}

// Alive reports whether the worker is still running.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.done
}

// Registry binds analysis ids to their background workers so a UI can
// reattach to an in-flight analysis after reload.
type Registry struct {
	cfg    *config.Config
	client *redis.Client
	log    *logging.Logger

	mu      sync.Mutex
	workers map[string]*Worker
}

// NewRegistry builds a registry. client may be nil; it is only used to
// consult progress records for dead workers.
func NewRegistry(cfg *config.Config, client *redis.Client) *Registry {
	return &Registry{
		cfg:     cfg,
		client:  client,
		log:     logging.ForComponent("session_registry"),
		workers: make(map[string]*Worker),
	}
}

// Register binds an analysis id to a new worker handle and returns it.
func (r *Registry) Register(analysisID string) *Worker {
	w := &Worker{AnalysisID: analysisID}
	r.mu.Lock()
	r.workers[analysisID] = w
	r.mu.Unlock()
	return w
}

// Unregister removes the binding.
func (r *Registry) Unregister(analysisID string) {
	r.mu.Lock()
	delete(r.workers, analysisID)
	r.mu.Unlock()
}

// IsAlive reports whether a registered worker is still running.
func (r *Registry) IsAlive(analysisID string) bool {
	r.mu.Lock()
	w := r.workers[analysisID]
	r.mu.Unlock()
	return w != nil && w.Alive()
}

// CheckStatus resolves the status of an analysis. A live worker means
// running. For anything else the progress record disambiguates: a
// terminal record stands as-is, while a record still marked running
// with no live worker means the worker died.
func (r *Registry) CheckStatus(ctx context.Context, analysisID string) string {
	if r.IsAlive(analysisID) {
		return StatusRunning
	}

	record, err := progress.GetProgressByID(ctx, r.cfg, r.client, analysisID)
	if err != nil {
		return StatusNotFound
	}
	switch record.Status {
	case progress.StatusCompleted:
		return StatusCompleted
	case progress.StatusFailed:
		return StatusFailed
	case progress.StatusRunning:
		r.log.Warnf("analysis %s recorded as running but its worker is gone", analysisID)
		return StatusFailed
	}
	return StatusNotFound
}

// Snapshot returns the currently registered analysis ids.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.workers))
	for id := range r.workers {
		ids = append(ids, id)
	}
	return ids
}
