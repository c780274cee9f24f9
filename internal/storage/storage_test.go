package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jjudge-oj/contestjudge/config"
)

func TestPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(NewMemoryObjectStorage("samples"))

	uploaded, err := s.PutIfAbsent(ctx, "questions/1/samples-abc.tar.gz", bytes.NewReader([]byte("v1")), 2, "application/gzip")
	require.NoError(t, err)
	assert.True(t, uploaded)

	uploaded, err = s.PutIfAbsent(ctx, "questions/1/samples-abc.tar.gz", bytes.NewReader([]byte("v2")), 2, "application/gzip")
	require.NoError(t, err)
	assert.False(t, uploaded)

	rc, err := s.Get(ctx, "questions/1/samples-abc.tar.gz")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, s.Delete(ctx, "questions/1/samples-abc.tar.gz"))
	_, err = s.Get(ctx, "questions/1/samples-abc.tar.gz")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.StorageConfig{Backend: "minio"})
	assert.Error(t, err)
}
