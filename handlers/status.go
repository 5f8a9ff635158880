package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sys/unix"

	"github.com/ronnedahl/video-app-date/config"
	"github.com/ronnedahl/video-app-date/ffmpeg"
	"github.com/ronnedahl/video-app-date/jobs"
)

type BuildInfo struct {
	BuildDate    string `json:"buildDate"`
	BuildId      string `json:"buildId"`
	BuildIdShort string `json:"buildIdShort"`
}

func MakeBuildInfo() BuildInfo {
	sha := config.GetGitSHA()
	short := sha
	if len(short) > 7 {
		short = short[0:7]
	}
	return BuildInfo{
		BuildDate:    config.GetBuildDate(),
		BuildId:      sha,
		BuildIdShort: short,
	}
}

type diagnostics struct {
	Ffmpeg    string                `json:"ffmpeg"`
	FreeBytes uint64                `json:"freeBytes"`
	UsedBytes int64                 `json:"usedBytes"`
	Jobs      map[jobs.Status]int   `json:"jobs"`
	Archived  map[jobs.Status]int64 `json:"archived,omitempty"`
	Build     BuildInfo             `json:"build"`
}

// getFreeSpace returns the free space in bytes for the filesystem containing the given directory
func getFreeSpace(dir string) (uint64, error) {
	var stat unix.Statfs_t
	err := unix.Statfs(dir, &stat)
	if err != nil {
		return 0, fmt.Errorf("error getting filesystem stats: %v", err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// getDirectorySize calculates the total size of a directory in bytes
func getDirectorySize(dir string) (int64, error) {
	var size int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error walking directory: %v", err)
	}
	return size, nil
}

// Diagnostics reports tool versions, disk use and job counts. Probe
// failures are logged and leave the field empty.
func (v *Videos) Diagnostics(c echo.Context) error {
	out := diagnostics{
		Jobs:  v.Registry.Counts(),
		Build: MakeBuildInfo(),
	}

	var err error
	if out.Ffmpeg, err = ffmpeg.Version(); err != nil {
		log.Errorln(err)
	}
	if out.FreeBytes, err = getFreeSpace(v.DataDir); err != nil {
		log.Errorln(err)
	}
	if out.UsedBytes, err = getDirectorySize(v.DataDir); err != nil {
		log.Errorln(err)
	}
	if v.Archive != nil {
		if out.Archived, err = v.Archive.Counts(c.Request().Context()); err != nil {
			log.Errorln(err)
		}
	}

	return c.JSON(http.StatusOK, out)
}

func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
