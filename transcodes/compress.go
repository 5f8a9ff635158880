package transcodes

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ronnedahl/video-app-date/jobs"
)

// Options are forwarded verbatim to the encoder.
type Options struct {
	VideoCodec   string
	AudioCodec   string
	Width        uint // output width, height follows the aspect ratio
	VideoBitrate string
	AudioBitrate string
	Preset       string
	CRF          int
}

// Encoder produces outputPath from inputPath, reporting percent complete
// through onProgress. Reported values may jitter and fall outside [0,100].
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, opts Options, onProgress func(percent float64)) error
}

// Compressor drives one encoder run per call and mirrors its progress and
// outcome into the job registry.
type Compressor struct {
	encoder  Encoder
	registry *jobs.Registry
}

func NewCompressor(encoder Encoder, registry *jobs.Registry) *Compressor {
	return &Compressor{encoder: encoder, registry: registry}
}

// Compress runs the encoder to completion and returns the output size.
// Failures are terminal for the job; nothing is retried.
func (c *Compressor) Compress(ctx context.Context, inputPath, outputPath, jobID string, opts Options) (int64, error) {
	onProgress := func(percent float64) {
		p := clampPercent(percent)
		log.Debugf("progress %s: %d%%", jobID, p)
		c.registry.UpdateProgress(jobID, p)
	}

	if err := c.encoder.Encode(ctx, inputPath, outputPath, opts, onProgress); err != nil {
		c.registry.Fail(jobID, err.Error())
		return 0, err
	}

	fi, err := os.Stat(outputPath)
	if err != nil {
		err = fmt.Errorf("stat output: %w", err)
		c.registry.Fail(jobID, err.Error())
		return 0, err
	}

	c.registry.Complete(jobID, filepath.Base(outputPath), fi.Size())
	return fi.Size(), nil
}

func clampPercent(percent float64) int {
	if math.IsNaN(percent) {
		return 0
	}
	return int(math.Round(math.Min(100, math.Max(0, percent))))
}
