package jobs

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCreate_NewJobIsProcessing(t *testing.T) {
	r := NewRegistry()

	job, err := r.Create("a", "1-abc.mp4", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Status != Processing || job.Progress != 0 {
		t.Fatalf("want processing/0, got %s/%d", job.Status, job.Progress)
	}
	if job.CreatedAt.IsZero() {
		t.Fatalf("createdAt not set")
	}
	if job.CompressedFile != "" || job.CompressedSize != 0 || job.Error != "" {
		t.Fatalf("terminal fields set on new job: %+v", job)
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create("a", "x.mp4", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := r.Create("a", "y.mp4", 2)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("want ErrExists, got %v", err)
	}
	job, _ := r.Get("a")
	if job.OriginalFile != "x.mp4" {
		t.Fatalf("duplicate create overwrote the job: %+v", job)
	}
}

func TestGet_Missing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Fatalf("expected missing job")
	}
}

func TestUpdateProgress(t *testing.T) {
	cases := []struct {
		name    string
		updates []int
		want    int
	}{
		{"simple", []int{10, 20}, 20},
		{"jitter ignored", []int{40, 35}, 40},
		{"negative clamped", []int{-5}, 0},
		{"hundred reserved", []int{100}, 99},
		{"over range", []int{250}, 99},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			r.Create("a", "x.mp4", 1)
			for _, p := range tc.updates {
				r.UpdateProgress("a", p)
			}
			job, _ := r.Get("a")
			if job.Progress != tc.want {
				t.Fatalf("want %d, got %d", tc.want, job.Progress)
			}
			if job.Status != Processing {
				t.Fatalf("status changed to %s", job.Status)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	r := NewRegistry()
	r.Create("a", "x.mp4", 1)
	r.UpdateProgress("a", 50)
	r.Complete("a", "a_compressed.mp4", 42)

	job, _ := r.Get("a")
	if job.Status != Completed || job.Progress != 100 {
		t.Fatalf("want completed/100, got %s/%d", job.Status, job.Progress)
	}
	if job.CompressedFile != "a_compressed.mp4" || job.CompressedSize != 42 {
		t.Fatalf("compressed fields not set: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Fatalf("completedAt not set")
	}
	if job.Error != "" {
		t.Fatalf("error set on completed job")
	}
}

func TestFail(t *testing.T) {
	r := NewRegistry()
	r.Create("a", "x.mp4", 1)
	r.Fail("a", "boom")

	job, _ := r.Get("a")
	if job.Status != Failed || job.Error != "boom" {
		t.Fatalf("want failed/boom, got %s/%q", job.Status, job.Error)
	}
	if job.CompressedFile != "" || job.CompressedSize != 0 {
		t.Fatalf("compressed fields set on failed job: %+v", job)
	}
}

func TestFail_EmptyMessageStillNonEmpty(t *testing.T) {
	r := NewRegistry()
	r.Create("a", "x.mp4", 1)
	r.Fail("a", "")
	job, _ := r.Get("a")
	if job.Error == "" {
		t.Fatalf("failed job must carry an error message")
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	r := NewRegistry()
	r.Create("done", "x.mp4", 1)
	r.Complete("done", "done_compressed.mp4", 5)
	r.Fail("done", "late error")
	r.UpdateProgress("done", 10)

	job, _ := r.Get("done")
	if job.Status != Completed || job.Progress != 100 || job.Error != "" {
		t.Fatalf("completed job mutated: %+v", job)
	}

	r.Create("bad", "y.mp4", 1)
	r.Fail("bad", "boom")
	r.Complete("bad", "bad_compressed.mp4", 5)

	job, _ = r.Get("bad")
	if job.Status != Failed || job.CompressedFile != "" {
		t.Fatalf("failed job mutated: %+v", job)
	}
}

func TestMutationsOnMissingJobAreNoops(t *testing.T) {
	r := NewRegistry()
	r.UpdateProgress("ghost", 10)
	r.Complete("ghost", "g.mp4", 1)
	r.Fail("ghost", "x")
	r.Delete("ghost")
	if _, ok := r.Get("ghost"); ok {
		t.Fatalf("noop created a job")
	}
}

func TestDelete_Idempotent(t *testing.T) {
	r := NewRegistry()
	r.Create("a", "x.mp4", 1)
	r.Delete("a")
	r.Delete("a")
	if _, ok := r.Get("a"); ok {
		t.Fatalf("job still present")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Create("a", "x.mp4", 1)
	job, _ := r.Get("a")
	job.Status = Failed
	again, _ := r.Get("a")
	if again.Status != Processing {
		t.Fatalf("registry state leaked through returned value")
	}
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	r := NewRegistry()
	r.Create("a", "a.mp4", 1)
	r.Create("b", "b.mp4", 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			r.UpdateProgress("a", p)
		}(i)
	}
	wg.Wait()

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	if a.Progress != 99 {
		t.Fatalf("want 99 for a, got %d", a.Progress)
	}
	if b.Progress != 0 || b.Status != Processing {
		t.Fatalf("job b mutated by updates to a: %+v", b)
	}
}

func TestCountsAndList(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 3; i++ {
		r.Create(fmt.Sprintf("j%d", i), "x.mp4", 1)
	}
	r.Complete("j0", "j0_compressed.mp4", 1)
	r.Fail("j1", "boom")

	counts := r.Counts()
	if counts[Processing] != 1 || counts[Completed] != 1 || counts[Failed] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if got := len(r.List()); got != 3 {
		t.Fatalf("want 3 jobs, got %d", got)
	}
}

func TestExpired(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	r.Create("old", "x.mp4", 1)
	r.Complete("old", "old_compressed.mp4", 1)
	r.Create("running", "y.mp4", 1)

	r.now = func() time.Time { return base.Add(2 * time.Hour) }
	r.Create("fresh", "z.mp4", 1)
	r.Fail("fresh", "boom")

	expired := r.Expired(base.Add(2*time.Hour), time.Hour)
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Fatalf("want only old expired, got %+v", expired)
	}
}
