// Package mirror copies finished artifacts to an S3 compatible bucket.
// The local compressed file stays the download source.
package mirror

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/ronnedahl/video-app-date/jobs"
)

var log = logrus.NewEntry(logrus.StandardLogger())

func Init(logger *logrus.Logger) error {
	log = logger.WithFields(logrus.Fields{
		"component": "mirror",
	})
	return nil
}

type objectPutter interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Mirror struct {
	client        objectPutter
	bucket        string
	compressedDir string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func New(opts Options, compressedDir string) (*Mirror, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}
	return &Mirror{client: client, bucket: opts.Bucket, compressedDir: compressedDir}, nil
}

// JobFinished uploads the compressed file of a completed job. Failed jobs
// have nothing to mirror.
func (m *Mirror) JobFinished(ctx context.Context, job jobs.Job) error {
	if job.Status != jobs.Completed || job.CompressedFile == "" {
		return nil
	}
	path := filepath.Join(m.compressedDir, job.CompressedFile)
	info, err := m.client.FPutObject(ctx, m.bucket, job.CompressedFile, path, minio.PutObjectOptions{
		ContentType: "video/mp4",
	})
	if err != nil {
		return fmt.Errorf("mirror %s: %w", job.ID, err)
	}
	log.Infof("mirrored %s to %s/%s (%d bytes)", job.ID, info.Bucket, info.Key, info.Size)
	return nil
}
