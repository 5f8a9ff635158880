package ffmpeg

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// runs ffmpeg with the provided args and returns (stdout, stderr, error)
func Ffmpeg(args ...string) ([]byte, []byte, error) {
	log.Infoln(ffmpegBin, strings.Join(args, " "))
	cmd := exec.Command(ffmpegBin, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		log.Errorf("ffmpeg error: %v", err)
	}
	log.Debugln("stdout:", stdout.String())
	log.Debugln("stderr:", stderr.String())
	return stdout.Bytes(), stderr.Bytes(), err
}

// Version returns the first line of `ffmpeg -version`.
func Version() (string, error) {
	stdout, _, err := Ffmpeg("-hide_banner", "-version")
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version: %w", err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(stdout)), "\n")
	return line, nil
}
