package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_ListAndGet(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "datasets", "2026"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "datasets", "2026", "pantry.yaml"), []byte("name: pantry\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	s := NewLocalStorage(root)
	ctx := context.Background()

	objects, err := s.ListObjects(ctx, "datasets/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "datasets/2026/pantry.yaml", objects[0].Key)
	assert.Equal(t, int64(len("name: pantry\n")), objects[0].Size)

	data, err := s.GetObject(ctx, "datasets/2026/pantry.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: pantry\n", string(data))
}

func TestLocalStorage_GetMissing(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir()).GetObject(context.Background(), "missing.yaml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	_, err := NewLocalStorage(t.TempDir()).GetObject(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes storage root")
}

func TestNewMinioClient_RequiresSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{name: "no endpoint", cfg: S3Config{AccessKey: "a", SecretKey: "s", Bucket: "b"}, want: "endpoint"},
		{name: "no credentials", cfg: S3Config{Endpoint: "localhost:9000", Bucket: "b"}, want: "credentials"},
		{name: "no bucket", cfg: S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, want: "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMinioClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewMinioClient_AcceptsSchemeInEndpoint(t *testing.T) {
	c, err := NewMinioClient(S3Config{
		Endpoint:  "http://localhost:9000/",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "datasets",
	})
	require.NoError(t, err)
	assert.Equal(t, "datasets", c.bucket)
	assert.Equal(t, "localhost:9000", c.client.EndpointURL().Host)
	assert.Equal(t, "http", c.client.EndpointURL().Scheme)
}
