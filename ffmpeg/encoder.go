package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ronnedahl/video-app-date/transcodes"
)

// Encoder is the ffmpeg backed transcodes.Encoder.
type Encoder struct {
	// TempDir receives the in-progress output; the finished file is renamed
	// to the requested output path. Empty writes in place.
	TempDir string
}

func NewEncoder(tempDir string) *Encoder {
	return &Encoder{TempDir: tempDir}
}

func (e *Encoder) Encode(ctx context.Context, inputPath, outputPath string, opts transcodes.Options, onProgress func(float64)) error {
	duration, err := Duration(ctx, inputPath)
	if err != nil {
		log.Warnf("duration probe failed for %s, no progress will be reported: %v", inputPath, err)
		duration = 0
	}

	workPath := outputPath
	if e.TempDir != "" {
		workPath = filepath.Join(e.TempDir, filepath.Base(outputPath)+".part")
	}

	args := buildArgs(inputPath, workPath, opts)
	log.Infoln(ffmpegBin, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, ffmpegBin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	parser := progressParser{duration: duration}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if percent, ok := parser.parse(scanner.Text()); ok && onProgress != nil {
			onProgress(percent)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("progress stream for %s: %v", inputPath, err)
	}
	// keep ffmpeg from blocking on a full pipe
	if _, err := io.Copy(io.Discard, stdout); err != nil {
		log.Warnf("drain progress stream for %s: %v", inputPath, err)
	}

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(workPath)
		if msg := tail(stderr.String(), 3); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}

	if workPath != outputPath {
		if err := os.Rename(workPath, outputPath); err != nil {
			_ = os.Remove(workPath)
			return fmt.Errorf("move output: %w", err)
		}
	}
	return nil
}

// buildArgs applies the fixed web-playback instructions on top of opts:
// aspect preserving scale to opts.Width, fast start and yuv420p.
func buildArgs(inputPath, outputPath string, opts transcodes.Options) []string {
	args := []string{"-hide_banner", "-y", "-i", inputPath}
	if opts.VideoCodec != "" {
		args = append(args, "-c:v", opts.VideoCodec)
	}
	if opts.VideoBitrate != "" {
		args = append(args, "-b:v", opts.VideoBitrate)
	}
	if opts.AudioCodec != "" {
		args = append(args, "-c:a", opts.AudioCodec)
	}
	if opts.AudioBitrate != "" {
		args = append(args, "-b:a", opts.AudioBitrate)
	}
	if opts.Width > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", opts.Width))
	}
	if opts.Preset != "" {
		args = append(args, "-preset", opts.Preset)
	}
	if opts.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(opts.CRF))
	}
	return append(args,
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
		"-progress", "pipe:1",
		"-nostats",
		"-f", "mp4",
		outputPath)
}

// progressParser turns `-progress` key=value lines into percent of duration.
type progressParser struct {
	duration float64 // seconds
}

func (p progressParser) parse(line string) (float64, bool) {
	if p.duration <= 0 {
		return 0, false
	}
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	// both keys carry microseconds
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return us / 1e6 / p.duration * 100, true
	}
	return 0, false
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
