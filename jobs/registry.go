package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var ErrExists = errors.New("job already exists")

// Registry is the process-local map from job id to Job. It is not persisted.
type Registry struct {
	jobs  map[string]*Job
	mutex sync.RWMutex
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create inserts a new processing job. A duplicate id is a caller bug.
func (r *Registry) Create(id, originalFile string, originalSize int64) (Job, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.jobs[id]; exists {
		return Job{}, fmt.Errorf("create %s: %w", id, ErrExists)
	}
	job := &Job{
		ID:           id,
		Status:       Processing,
		Progress:     0,
		OriginalFile: originalFile,
		OriginalSize: originalSize,
		CreatedAt:    r.now().UTC(),
	}
	r.jobs[id] = job
	return *job, nil
}

func (r *Registry) Get(id string) (Job, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// UpdateProgress records percent for a processing job. Values below the
// current progress are ignored and 100 is reserved for Complete.
func (r *Registry) UpdateProgress(id string, percent int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != Processing {
		return
	}
	percent = min(max(percent, 0), 99)
	if percent > job.Progress {
		job.Progress = percent
	}
}

func (r *Registry) Complete(id, outputFile string, outputSize int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != Processing {
		return
	}
	now := r.now().UTC()
	job.Status = Completed
	job.Progress = 100
	job.CompressedFile = outputFile
	job.CompressedSize = outputSize
	job.CompletedAt = &now
}

func (r *Registry) Fail(id, message string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != Processing {
		return
	}
	if message == "" {
		message = "transcode failed"
	}
	now := r.now().UTC()
	job.Status = Failed
	job.Error = message
	job.CompletedAt = &now
}

// Delete is idempotent.
func (r *Registry) Delete(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.jobs, id)
}

// List returns a snapshot ordered by creation time.
func (r *Registry) List() []Job {
	r.mutex.RLock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	r.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Counts() map[Status]int {
	counts := map[Status]int{
		Processing: 0,
		Completed:  0,
		Failed:     0,
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}

// Expired returns the terminal jobs that finished more than ttl before now.
func (r *Registry) Expired(now time.Time, ttl time.Duration) []Job {
	cutoff := now.Add(-ttl)
	var out []Job
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, job := range r.jobs {
		if job.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out
}
