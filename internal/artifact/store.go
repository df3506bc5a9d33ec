// Package artifact uploads retained job logs to S3-compatible object
// storage so failed runs can be inspected after the runner is gone. The
// store is optional: with no endpoint configured, uploads are disabled.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gantryci/gantry/internal/ctxlog"
)

// Config holds the object-store connection settings, typically sourced
// from GANTRY_S3_* environment variables (see FromEnv).
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether an endpoint is configured at all.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks that an enabled config is complete.
func (c Config) Validate() error {
	if !c.Enabled() {
		return errors.New("artifact store endpoint is not configured")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("artifact store credentials are not configured")
	}
	if c.Bucket == "" {
		return errors.New("artifact store bucket is not configured")
	}
	return nil
}

// FromEnv reads the config from GANTRY_S3_* environment variables.
func FromEnv() Config {
	useSSL, _ := strconv.ParseBool(os.Getenv("GANTRY_S3_USE_SSL"))
	return Config{
		Endpoint:  os.Getenv("GANTRY_S3_ENDPOINT"),
		AccessKey: os.Getenv("GANTRY_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("GANTRY_S3_SECRET_KEY"),
		Bucket:    os.Getenv("GANTRY_S3_BUCKET"),
		Region:    os.Getenv("GANTRY_S3_REGION"),
		UseSSL:    useSSL,
	}
}

// Store uploads log artifacts to one bucket.
type Store struct {
	client *minio.Client
	cfg    Config
}

// New connects to the object store and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create artifact bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Store{client: client, cfg: cfg}, nil
}

// UploadLog stores one job's log under runs/<runID>/<job>.log and returns
// the object key.
func (s *Store) UploadLog(ctx context.Context, runID, jobName string, log []byte) (string, error) {
	key := path.Join("runs", runID, jobName+".log")

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(log), int64(len(log)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("failed to upload log for job %q: %w", jobName, err)
	}

	ctxlog.FromContext(ctx).Info("Uploaded job log artifact.",
		"bucket", s.cfg.Bucket, "key", key, "size", len(log))
	return key, nil
}
