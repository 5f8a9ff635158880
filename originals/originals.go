package originals

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoFile    = errors.New("no video uploaded")
	ErrExtension = errors.New("file type not allowed")
	ErrTooLarge  = errors.New("file too large")
)

// Staging validates uploads and stores the accepted ones under unique names.
type Staging struct {
	Dir               string
	MaxSize           int64
	AllowedExtensions []string // lower case, with leading dot

	now func() time.Time
}

func NewStaging(dir string, maxSize int64, allowed []string) *Staging {
	exts := make([]string, 0, len(allowed))
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &Staging{Dir: dir, MaxSize: maxSize, AllowedExtensions: exts, now: time.Now}
}

// Validate checks the file name and declared size without touching disk.
func (s *Staging) Validate(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(s.AllowedExtensions, ext) {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s (allowed: %s)", ErrExtension, ext, strings.Join(s.AllowedExtensions, ", "))
	}
	if s.MaxSize > 0 && size > s.MaxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", ErrTooLarge, size, s.MaxSize)
	}
	return nil
}

// Save validates header and copies the upload into the staging directory.
// It returns the staged file name and the number of bytes written.
func (s *Staging) Save(header *multipart.FileHeader) (string, int64, error) {
	if header == nil {
		return "", 0, ErrNoFile
	}
	if err := s.Validate(header.Filename, header.Size); err != nil {
		return "", 0, err
	}

	src, err := header.Open()
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	return s.write(src, filepath.Ext(header.Filename))
}

func (s *Staging) write(src io.Reader, ext string) (string, int64, error) {
	name := s.uniqueName(ext)
	path := filepath.Join(s.Dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}

	r := src
	if s.MaxSize > 0 {
		r = io.LimitReader(src, s.MaxSize+1)
	}
	n, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil && s.MaxSize > 0 && n > s.MaxSize {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.MaxSize)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}

	log.Debugf("staged %s (%d bytes)", path, n)
	return name, n, nil
}

// uniqueName is <unix millis>-<random base36><ext>.
func (s *Staging) uniqueName(ext string) string {
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), strconv.FormatUint(rand.Uint64(), 36), ext)
}

// Path returns the absolute location of a staged file.
func (s *Staging) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

// Remove deletes a staged file.
func (s *Staging) Remove(name string) error {
	return os.Remove(s.Path(name))
}
