package transcodes

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ronnedahl/video-app-date/jobs"
)

type fakeEncoder struct {
	progress []float64
	output   []byte
	err      error
	seen     []int
	registry *jobs.Registry
	jobID    string
	opts     Options
}

func (f *fakeEncoder) Encode(ctx context.Context, in, out string, opts Options, onProgress func(float64)) error {
	f.opts = opts
	for _, p := range f.progress {
		onProgress(p)
		job, _ := f.registry.Get(f.jobID)
		f.seen = append(f.seen, job.Progress)
	}
	if f.err != nil {
		return f.err
	}
	if f.output != nil {
		return os.WriteFile(out, f.output, 0o644)
	}
	return nil
}

func TestCompress_Success(t *testing.T) {
	dir := t.TempDir()
	reg := jobs.NewRegistry()
	reg.Create("v1", "orig.mp4", 100)

	enc := &fakeEncoder{
		progress: []float64{12.4, 48.6, 47, 99.9},
		output:   []byte("compressed!"),
		registry: reg,
		jobID:    "v1",
	}
	out := filepath.Join(dir, "v1_compressed.mp4")
	opts := Options{VideoCodec: "libx264", Width: 480, CRF: 28}

	size, err := NewCompressor(enc, reg).Compress(context.Background(), "in.mp4", out, "v1", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != int64(len("compressed!")) {
		t.Fatalf("want size %d, got %d", len("compressed!"), size)
	}
	if enc.opts != opts {
		t.Fatalf("options not forwarded: %+v", enc.opts)
	}

	want := []int{12, 49, 49, 99}
	for i, p := range want {
		if enc.seen[i] != p {
			t.Fatalf("progress step %d: want %d, got %d", i, p, enc.seen[i])
		}
	}

	job, _ := reg.Get("v1")
	if job.Status != jobs.Completed || job.Progress != 100 {
		t.Fatalf("want completed/100, got %s/%d", job.Status, job.Progress)
	}
	if job.CompressedFile != "v1_compressed.mp4" || job.CompressedSize != size {
		t.Fatalf("unexpected compressed fields: %+v", job)
	}
}

func TestCompress_EncoderError(t *testing.T) {
	reg := jobs.NewRegistry()
	reg.Create("v1", "orig.mp4", 100)
	enc := &fakeEncoder{progress: []float64{5}, err: errors.New("invalid data found"), registry: reg, jobID: "v1"}

	_, err := NewCompressor(enc, reg).Compress(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "o.mp4"), "v1", Options{})
	if err == nil {
		t.Fatalf("expected error")
	}

	job, _ := reg.Get("v1")
	if job.Status != jobs.Failed || job.Error != "invalid data found" {
		t.Fatalf("want failed with message, got %+v", job)
	}
	if job.CompressedFile != "" {
		t.Fatalf("compressed file set on failure")
	}
}

func TestCompress_MissingOutputFails(t *testing.T) {
	reg := jobs.NewRegistry()
	reg.Create("v1", "orig.mp4", 100)
	enc := &fakeEncoder{registry: reg, jobID: "v1"}

	_, err := NewCompressor(enc, reg).Compress(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "never.mp4"), "v1", Options{})
	if err == nil {
		t.Fatalf("expected error for missing output")
	}
	job, _ := reg.Get("v1")
	if job.Status != jobs.Failed || job.Error == "" {
		t.Fatalf("want failed job, got %+v", job)
	}
}

func TestCompress_JobDeletedMidway(t *testing.T) {
	dir := t.TempDir()
	reg := jobs.NewRegistry()
	reg.Create("v1", "orig.mp4", 100)
	enc := &fakeEncoder{output: []byte("x"), registry: reg, jobID: "v1"}
	reg.Delete("v1")

	if _, err := NewCompressor(enc, reg).Compress(context.Background(), "in.mp4", filepath.Join(dir, "o.mp4"), "v1", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := reg.Get("v1"); ok {
		t.Fatalf("completion resurrected a deleted job")
	}
}

func TestClampPercent(t *testing.T) {
	cases := map[float64]int{
		-3:         0,
		0:          0,
		49.5:       50,
		99.4:       99,
		100:        100,
		180:        100,
		math.NaN(): 0,
	}
	for in, want := range cases {
		if got := clampPercent(in); got != want {
			t.Errorf("clampPercent(%v): want %d, got %d", in, want, got)
		}
	}
}
