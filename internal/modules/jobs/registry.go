// Package jobs tracks asynchronous request execution. Records live in memory
// only and expire after a TTL; a restart forgets them, which is acceptable
// because every job is recomputable from its original request.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// DefaultTTL is how long finished job records are retained.
const DefaultTTL = 30 * time.Minute

// Record is one tracked job.
type Record struct {
	ID        string      `json:"job_id"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Registry runs jobs in the background and tracks their state.
type Registry struct {
	ttl time.Duration
	log zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*Record
}

// NewRegistry creates a job registry.
func NewRegistry(ttl time.Duration, log zerolog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:  ttl,
		log:  log.With().Str("component", "jobs").Logger(),
		jobs: make(map[string]*Record),
	}
}

// Submit registers a job and runs fn in a goroutine. The returned record is a
// snapshot of the queued state.
func (r *Registry) Submit(fn func() (interface{}, error)) Record {
	now := time.Now()
	rec := &Record{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.cleanupLocked()
	r.jobs[rec.ID] = rec
	snapshot := *rec
	r.mu.Unlock()

	go r.run(rec.ID, fn)
	return snapshot
}

// Get returns a snapshot of a job record.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()

	rec, ok := r.jobs[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (r *Registry) run(id string, fn func() (interface{}, error)) {
	r.setStatus(id, StatusRunning, nil, "")

	result, err := fn()
	if err != nil {
		r.log.Warn().Err(err).Str("job_id", id).Msg("Job failed")
		r.setStatus(id, StatusError, nil, err.Error())
		return
	}
	r.setStatus(id, StatusDone, result, "")
}

func (r *Registry) setStatus(id string, status Status, result interface{}, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[id]
	if !ok {
		return
	}
	rec.Status = status
	rec.Result = result
	rec.Error = errMsg
	rec.UpdatedAt = time.Now()
}

// cleanupLocked drops records idle past the TTL. Caller holds the lock.
func (r *Registry) cleanupLocked() {
	cutoff := time.Now().Add(-r.ttl)
	for id, rec := range r.jobs {
		if rec.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}
