package artifact

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgnn/pkg/errors"
)

// ObjectAPI is the slice of the MinIO client the fetcher needs. Narrowed to
// an interface so tests can substitute a fake.
type ObjectAPI interface {
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucket, object string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// minioAPI adapts *minio.Client to ObjectAPI.
type minioAPI struct {
	*minio.Client
}

func (a minioAPI) GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.Client.GetObject(ctx, bucket, object, opts)
}

// MinIOConfig configures object-storage checkpoint retrieval.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	// Prefix is prepended to object names, e.g. "checkpoints/".
	Prefix string `mapstructure:"prefix"`
	// CacheDir, when set, keeps a local copy of each fetched checkpoint so
	// repeated constructions avoid the network round trip.
	CacheDir string `mapstructure:"cache_dir"`
}

func (c *MinIOConfig) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Bucket == "" {
		c.Bucket = "molgnn-models"
	}
}

// MinIOFetcher retrieves checkpoints from a MinIO bucket, optionally caching
// them on local disk.
type MinIOFetcher struct {
	api    ObjectAPI
	config *MinIOConfig
	logger logging.Logger
}

// NewMinIOFetcher connects to MinIO and verifies the bucket exists.
func NewMinIOFetcher(cfg *MinIOConfig, log logging.Logger) (*MinIOFetcher, error) {
	cfg.applyDefaults()
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArtifactFetch, "creating minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"checking bucket %q", cfg.Bucket)
	}
	if !ok {
		return nil, errors.Newf(errors.ErrCodeArtifactNotFound,
			"bucket %q does not exist", cfg.Bucket)
	}

	log.Info("checkpoint store connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return &MinIOFetcher{api: minioAPI{client}, config: cfg, logger: log}, nil
}

// NewMinIOFetcherWithAPI wires a fetcher over an existing ObjectAPI. Used by
// tests.
func NewMinIOFetcherWithAPI(api ObjectAPI, cfg *MinIOConfig, log logging.Logger) *MinIOFetcher {
	cfg.applyDefaults()
	return &MinIOFetcher{api: api, config: cfg, logger: log}
}

func (f *MinIOFetcher) objectName(name string) string {
	return f.config.Prefix + name + checkpointExt
}

func (f *MinIOFetcher) cachePath(name string) string {
	return filepath.Join(f.config.CacheDir, name+checkpointExt)
}

// Fetch returns the named checkpoint, preferring the local cache when
// configured.
func (f *MinIOFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	if f.config.CacheDir != "" {
		if rc, err := os.Open(f.cachePath(name)); err == nil {
			f.logger.Debug("checkpoint cache hit", logging.String("name", name))
			return rc, nil
		}
	}

	obj, err := f.api.GetObject(ctx, f.config.Bucket, f.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"fetching checkpoint %q", name)
	}
	data, err := io.ReadAll(obj)
	obj.Close()
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, errors.Newf(errors.ErrCodeArtifactNotFound,
				"checkpoint %q not found in bucket %q", name, f.config.Bucket)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"reading checkpoint %q", name)
	}

	if f.config.CacheDir != "" {
		if err := f.writeCache(name, data); err != nil {
			// Cache failures degrade to a warning; the fetch itself succeeded.
			f.logger.Warn("checkpoint cache write failed",
				logging.String("name", name), logging.Err(err))
		}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *MinIOFetcher) writeCache(name string, data []byte) error {
	if err := os.MkdirAll(f.config.CacheDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.cachePath(name), data, 0o644)
}

// Put uploads checkpoint bytes, making fine-tuned weights available to other
// consumers of the bucket.
func (f *MinIOFetcher) Put(ctx context.Context, name string, data []byte) error {
	_, err := f.api.PutObject(ctx, f.config.Bucket, f.objectName(name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"uploading checkpoint %q", name)
	}
	f.logger.Info("checkpoint uploaded",
		logging.String("name", name), logging.Int("bytes", len(data)))
	return nil
}

// Exists reports whether the named checkpoint is present in the bucket.
func (f *MinIOFetcher) Exists(ctx context.Context, name string) (bool, error) {
	_, err := f.api.StatObject(ctx, f.config.Bucket, f.objectName(name), minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrapf(err, errors.ErrCodeArtifactFetch,
			"checking checkpoint %q", name)
	}
	return true, nil
}
