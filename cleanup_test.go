package main

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ronnedahl/video-app-date/jobs"
)

func TestSweep(t *testing.T) {
	log = logrus.New()
	r := jobs.NewRegistry()
	r.Create("done", "a.mp4", 1)
	r.Complete("done", "done_compressed.mp4", 1)
	r.Create("broken", "b.mp4", 1)
	r.Fail("broken", "boom")
	r.Create("running", "c.mp4", 1)

	var purged []string
	s := &sweeper{
		registry: r,
		purge: func(id string) bool {
			purged = append(purged, id)
			r.Delete(id)
			return true
		},
		ttl: time.Hour,
	}

	if n := s.sweep(time.Now()); n != 0 {
		t.Fatalf("swept %d fresh jobs", n)
	}
	if n := s.sweep(time.Now().Add(2 * time.Hour)); n != 2 {
		t.Fatalf("swept %d, want 2 (%v)", n, purged)
	}
	if _, ok := r.Get("running"); !ok {
		t.Fatalf("processing job swept")
	}
}

func TestSweep_DisabledWithoutTTL(t *testing.T) {
	log = logrus.New()
	r := jobs.NewRegistry()
	r.Create("done", "a.mp4", 1)
	r.Complete("done", "done_compressed.mp4", 1)

	s := &sweeper{
		registry: r,
		purge:    func(string) bool { t.Fatal("purge called"); return false },
	}
	if n := s.sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Fatalf("swept %d", n)
	}
}
