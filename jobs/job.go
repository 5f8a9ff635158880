package jobs

import (
	"context"
	"time"
)

type Status string

const (
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

// Job is the lifecycle record of one uploaded video's transcode.
type Job struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	Progress       int        `json:"progress"`
	OriginalFile   string     `json:"originalFile"`
	OriginalSize   int64      `json:"originalSize"`
	CompressedFile string     `json:"compressedFile,omitempty"`
	CompressedSize int64      `json:"compressedSize,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// IsTerminal reports whether no further automatic transition can happen.
func (j Job) IsTerminal() bool {
	return j.Status == Completed || j.Status == Failed
}

// Listener is notified once a job has reached a terminal status.
type Listener interface {
	JobFinished(ctx context.Context, job Job) error
}
