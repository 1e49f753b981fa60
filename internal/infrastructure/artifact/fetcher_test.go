package artifact

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molgnn/pkg/errors"
)

func TestLocalDirFetcherRoundTrip(t *testing.T) {
	f := NewLocalDirFetcher(t.TempDir())
	ctx := context.Background()

	require.NoError(t, f.Put(ctx, "contextpred", []byte("weights")))

	rc, err := f.Fetch(ctx, "contextpred")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("weights"), data)
}

func TestLocalDirFetcherNotFound(t *testing.T) {
	f := NewLocalDirFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeArtifactNotFound, errors.GetCode(err))
}

func TestMemoryFetcher(t *testing.T) {
	f := NewMemoryFetcher()
	f.Put("masking", []byte{1, 2, 3})

	rc, err := f.Fetch(context.Background(), "masking")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = f.Fetch(context.Background(), "absent")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeArtifactNotFound, errors.GetCode(err))
}

func TestMemoryFetcherCopiesOnPut(t *testing.T) {
	f := NewMemoryFetcher()
	src := []byte{7}
	f.Put("x", src)
	src[0] = 9

	rc, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, []byte{7}, data)
}
