package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// runs ffprobe with the provided args and returns (stdout, stderr, error)
func Ffprobe(ctx context.Context, args ...string) ([]byte, []byte, error) {
	log.Infoln(ffprobeBin, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, ffprobeBin, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		log.Errorf("ffprobe error: %v", err)
	}
	log.Debugln("stdout:", stdout.String())
	log.Debugln("stderr:", stderr.String())
	return stdout.Bytes(), stderr.Bytes(), err
}

// Duration returns the container duration of path in seconds.
func Duration(ctx context.Context, path string) (float64, error) {
	stdout, _, err := Ffprobe(ctx, "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(stdout))
	if s == "" || s == "N/A" {
		return 0, errors.New("duration not available")
	}
	return strconv.ParseFloat(s, 64)
}
