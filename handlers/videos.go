package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ronnedahl/video-app-date/archive"
	"github.com/ronnedahl/video-app-date/jobs"
	"github.com/ronnedahl/video-app-date/originals"
	"github.com/ronnedahl/video-app-date/transcodes"
)

const defaultHistoryLimit = 50

// Videos serves the upload, status, download and delete endpoints.
type Videos struct {
	Registry      *jobs.Registry
	Compressor    *transcodes.Compressor
	Staging       *originals.Staging
	CompressedDir string
	DataDir       string
	Options       transcodes.Options

	// Listeners are told about every job that reaches a terminal state.
	Listeners []jobs.Listener
	// Archive is optional.
	Archive *archive.Store

	newID   func() string
	running sync.WaitGroup
}

type uploadResponse struct {
	Message      string      `json:"message"`
	VideoID      string      `json:"videoId"`
	Status       jobs.Status `json:"status"`
	OriginalSize string      `json:"originalSize"`
}

type statusResponse struct {
	Status   jobs.Status `json:"status"`
	Progress int         `json:"progress"`
	Error    string      `json:"error,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func outputName(id string) string {
	return id + "_compressed.mp4"
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2fMB", float64(n)/1024/1024)
}

func (v *Videos) Upload(c echo.Context) error {
	header, err := c.FormFile("video")
	if err != nil {
		log.Debugf("upload without file: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, originals.ErrNoFile.Error())
	}

	staged, size, err := v.Staging.Save(header)
	if err != nil {
		switch {
		case errors.Is(err, originals.ErrExtension), errors.Is(err, originals.ErrNoFile):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, originals.ErrTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		}
		return fmt.Errorf("stage upload: %w", err)
	}

	id := v.nextID()
	if _, err := v.Registry.Create(id, staged, size); err != nil {
		if rmErr := v.Staging.Remove(staged); rmErr != nil {
			log.Errorf("remove %s: %v", staged, rmErr)
		}
		return fmt.Errorf("create job: %w", err)
	}
	log.Infof("job %s: %s (%s) staged as %s", id, header.Filename, formatMB(size), staged)

	inputPath := v.Staging.Path(staged)
	outputPath := filepath.Join(v.CompressedDir, outputName(id))
	v.running.Add(1)
	go v.transcode(context.WithoutCancel(c.Request().Context()), id, inputPath, outputPath)

	return c.JSON(http.StatusAccepted, uploadResponse{
		Message:      "video uploaded, compression started",
		VideoID:      id,
		Status:       jobs.Processing,
		OriginalSize: formatMB(size),
	})
}

func (v *Videos) transcode(ctx context.Context, id, inputPath, outputPath string) {
	defer v.running.Done()
	defer v.finished(ctx, id, outputPath)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("job %s: transcode panic: %v", id, r)
			v.Registry.Fail(id, fmt.Sprintf("transcode panic: %v", r))
		}
	}()

	size, err := v.Compressor.Compress(ctx, inputPath, outputPath, id, v.Options)
	if err != nil {
		log.Errorf("job %s failed: %v", id, err)
	} else {
		log.Infof("job %s completed: %s", id, formatMB(size))
	}
}

// finished hands the terminal job to every listener. A job deleted while
// running only has its late output removed.
func (v *Videos) finished(ctx context.Context, id, outputPath string) {
	job, ok := v.Registry.Get(id)
	if !ok {
		removeFile(outputPath)
		return
	}
	for _, l := range v.Listeners {
		if err := l.JobFinished(ctx, job); err != nil {
			log.Errorf("job %s: listener: %v", id, err)
		}
	}
}

func (v *Videos) nextID() string {
	if v.newID != nil {
		return v.newID()
	}
	return uuid.Must(uuid.NewV7()).String()
}

// Wait blocks until every started transcode has returned.
func (v *Videos) Wait() {
	v.running.Wait()
}

func (v *Videos) Status(c echo.Context) error {
	job, ok := v.Registry.Get(c.Param("id"))
	if !ok {
		return errNotFound()
	}
	return c.JSON(http.StatusOK, statusResponse{
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	})
}

func (v *Videos) Download(c echo.Context) error {
	job, ok := v.Registry.Get(c.Param("id"))
	if !ok {
		return errNotFound()
	}
	if job.Status != jobs.Completed {
		return echo.NewHTTPError(http.StatusBadRequest, "video is not ready")
	}

	path := filepath.Join(v.CompressedDir, job.CompressedFile)
	if _, err := os.Stat(path); err != nil {
		log.Errorf("job %s: %v", job.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read file")
	}
	return c.Attachment(path, job.CompressedFile)
}

func (v *Videos) Delete(c echo.Context) error {
	if !v.Purge(c.Param("id")) {
		return errNotFound()
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "video deleted"})
}

// Purge removes the job's files and then the job. File errors are logged
// and do not stop the rest. It reports whether the job existed.
func (v *Videos) Purge(id string) bool {
	job, ok := v.Registry.Get(id)
	if !ok {
		return false
	}

	if err := v.Staging.Remove(job.OriginalFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Errorf("job %s: remove original: %v", id, err)
	}
	compressed := job.CompressedFile
	if compressed == "" {
		compressed = outputName(id)
	}
	removeFile(filepath.Join(v.CompressedDir, compressed))

	v.Registry.Delete(id)
	log.Infof("job %s deleted", id)
	return true
}

func (v *Videos) History(c echo.Context) error {
	limit := defaultHistoryLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	if v.Archive == nil {
		return c.JSON(http.StatusOK, []archive.ArchivedJob{})
	}
	recent, err := v.Archive.Recent(c.Request().Context(), limit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return c.JSON(http.StatusOK, recent)
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Errorf("remove %s: %v", path, err)
	}
}

func errNotFound() error {
	return echo.NewHTTPError(http.StatusNotFound, "video not found")
}
