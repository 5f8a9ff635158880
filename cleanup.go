package main

import (
	"time"

	"gorm.io/gorm"

	"github.com/ronnedahl/video-app-date/database"
	"github.com/ronnedahl/video-app-date/jobs"
)

// sweeper drops finished jobs older than ttl, files included, the same way
// a client delete does.
type sweeper struct {
	registry *jobs.Registry
	purge    func(id string) bool
	db       *gorm.DB
	ttl      time.Duration
}

func (s *sweeper) sweep(now time.Time) int {
	n := 0
	if s.ttl > 0 {
		for _, job := range s.registry.Expired(now, s.ttl) {
			if s.purge(job.ID) {
				n++
			}
		}
		if n > 0 {
			log.Infof("swept %d expired jobs", n)
		}
	}
	if s.db != nil {
		database.Vacuum(s.db)
	}
	return n
}

func (s *sweeper) PeriodicCleanup(interval time.Duration) {
	s.sweep(time.Now())
	ticker := time.NewTicker(interval)
	for now := range ticker.C {
		s.sweep(now)
	}
}
