// Package archive keeps a history of finished transcodes in sqlite. It is
// never used to restore live jobs.
package archive

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ronnedahl/video-app-date/jobs"
)

type ArchivedJob struct {
	gorm.Model
	JobID          string      `gorm:"uniqueIndex"`
	Status         jobs.Status `gorm:"index"`
	OriginalFile   string
	OriginalSize   int64
	CompressedFile string
	CompressedSize int64
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// JobFinished records the terminal job. Re-archiving the same id updates it.
func (s *Store) JobFinished(ctx context.Context, job jobs.Job) error {
	rec := ArchivedJob{
		JobID:          job.ID,
		Status:         job.Status,
		OriginalFile:   job.OriginalFile,
		OriginalSize:   job.OriginalSize,
		CompressedFile: job.CompressedFile,
		CompressedSize: job.CompressedSize,
		Error:          job.Error,
		StartedAt:      job.CreatedAt,
	}
	if job.CompletedAt != nil {
		rec.FinishedAt = *job.CompletedAt
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

// Recent returns the newest records first.
func (s *Store) Recent(ctx context.Context, limit int) ([]ArchivedJob, error) {
	var out []ArchivedJob
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Store) Counts(ctx context.Context) (map[jobs.Status]int64, error) {
	var rows []struct {
		Status jobs.Status
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&ArchivedJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[jobs.Status]int64{
		jobs.Completed: 0,
		jobs.Failed:    0,
	}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
