package artifact

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgnn/pkg/errors"
)

// fakeObjectAPI backs the fetcher with an in-memory bucket. Missing objects
// surface as NoSuchKey on first read, matching the lazy behavior of the real
// client.
type fakeObjectAPI struct {
	objects map[string][]byte
	gets    int
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func (f *fakeObjectAPI) GetObject(_ context.Context, _ string, object string, _ minio.GetObjectOptions) (io.ReadCloser, error) {
	f.gets++
	data, ok := f.objects[object]
	if !ok {
		return io.NopCloser(errReader{minio.ErrorResponse{Code: "NoSuchKey"}}), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _ string, object string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[object] = data
	return minio.UploadInfo{Key: object, Size: int64(len(data))}, nil
}

func (f *fakeObjectAPI) StatObject(_ context.Context, _ string, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if _, ok := f.objects[object]; !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return minio.ObjectInfo{Key: object}, nil
}

func (f *fakeObjectAPI) BucketExists(context.Context, string) (bool, error) { return true, nil }

func newFakeFetcher(t *testing.T, cfg *MinIOConfig) (*MinIOFetcher, *fakeObjectAPI) {
	t.Helper()
	api := &fakeObjectAPI{objects: make(map[string][]byte)}
	return NewMinIOFetcherWithAPI(api, cfg, logging.NewNopLogger()), api
}

func TestMinIOFetcherRoundTrip(t *testing.T) {
	f, api := newFakeFetcher(t, &MinIOConfig{Prefix: "checkpoints/"})
	ctx := context.Background()

	payload := []byte("weights")
	require.NoError(t, f.Put(ctx, "contextpred", payload))
	assert.Contains(t, api.objects, "checkpoints/contextpred.ckpt")

	rc, err := f.Fetch(ctx, "contextpred")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestMinIOFetcherNotFound(t *testing.T) {
	f, _ := newFakeFetcher(t, &MinIOConfig{})

	_, err := f.Fetch(context.Background(), "masking")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeArtifactNotFound, errors.GetCode(err))
}

func TestMinIOFetcherCache(t *testing.T) {
	f, api := newFakeFetcher(t, &MinIOConfig{CacheDir: t.TempDir()})
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, "supervised", []byte("abc")))

	for i := 0; i < 2; i++ {
		rc, err := f.Fetch(ctx, "supervised")
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, []byte("abc"), got)
	}
	// The second fetch is served from the cache directory.
	assert.Equal(t, 1, api.gets)
}

func TestMinIOFetcherExists(t *testing.T) {
	f, _ := newFakeFetcher(t, &MinIOConfig{})
	ctx := context.Background()

	ok, err := f.Exists(ctx, "edgepred")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.Put(ctx, "edgepred", []byte("x")))
	ok, err = f.Exists(ctx, "edgepred")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMinIOConfigDefaults(t *testing.T) {
	cfg := &MinIOConfig{}
	cfg.applyDefaults()
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "molgnn-models", cfg.Bucket)
}
