/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package filestore

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mu       sync.Mutex
	uploaded []File
	deleted  []string
	files    map[string][]byte
	err      error
	// failOn makes uploads of the named file fail with err.
	failOn string
}

func (p *mockProvider) Upload(_ context.Context, file File) (FileHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil && (p.failOn == "" || p.failOn == file.Filename) {
		return FileHandle{}, p.err
	}
	p.uploaded = append(p.uploaded, file)
	return FileHandle{URL: "https://cdn.example.com/" + file.Filename, Key: KeyFromFilename(file.Filename)}, nil
}

func (p *mockProvider) Delete(_ context.Context, keys ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, keys...)
}

func (p *mockProvider) FetchAsBytes(_ context.Context, key string) ([]byte, error) {
	data, ok := p.files[key]
	if !ok {
		return nil, &FetchError{Key: key, StatusCode: http.StatusNotFound}
	}
	return data, nil
}

func (p *mockProvider) Ping(context.Context) error {
	if p.failOn != "" {
		return nil
	}
	return p.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestStorage_Upload(t *testing.T) {
	t.Run("content type is detected", func(t *testing.T) {
		provider := &mockProvider{}
		storage := NewStorage(provider, StorageOpts{SizeLimit: 1024})

		handle, err := storage.Upload(context.Background(), File{Content: pngHeader, Filename: "photo.png"})
		require.NoError(t, err)
		require.Equal(t, FileHandle{URL: "https://cdn.example.com/photo.png", Key: "photo"}, handle)
		require.Len(t, provider.uploaded, 1)
		require.Equal(t, "image/png", provider.uploaded[0].MimeType)
	})

	t.Run("content type is kept", func(t *testing.T) {
		provider := &mockProvider{}
		storage := NewStorage(provider, StorageOpts{})

		_, err := storage.Upload(context.Background(), File{Content: pngHeader, Filename: "photo", MimeType: "image/x-custom"})
		require.NoError(t, err)
		require.Equal(t, "image/x-custom", provider.uploaded[0].MimeType)
	})

	t.Run("too large", func(t *testing.T) {
		provider := &mockProvider{}
		metrics := NewPrometheusMetrics("")
		storage := NewStorage(provider, StorageOpts{SizeLimit: 10, Metrics: metrics})

		_, err := storage.Upload(context.Background(), File{Content: make([]byte, 11), Filename: "big.bin"})
		var tooLargeErr *TooLargeError
		require.ErrorAs(t, err, &tooLargeErr)
		require.Equal(t, &TooLargeError{Size: 11, Limit: 10}, tooLargeErr)
		require.Empty(t, provider.uploaded)
		require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Operations.WithLabelValues(OperationUpload, operationResultRejected)))

		_, err = storage.Upload(context.Background(), File{Content: make([]byte, 10), Filename: "exact.bin"})
		require.NoError(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		storage := NewStorage(&mockProvider{}, StorageOpts{})
		_, err := storage.Upload(context.Background(), File{Filename: "empty.txt"})
		require.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("provider error", func(t *testing.T) {
		providerErr := errors.New("connection refused")
		metrics := NewPrometheusMetrics("")
		storage := NewStorage(&mockProvider{err: providerErr}, StorageOpts{Metrics: metrics})

		_, err := storage.Upload(context.Background(), File{Content: []byte("x"), Filename: "a.txt"})
		require.ErrorIs(t, err, providerErr)
		require.EqualError(t, err, `upload file "a.txt": connection refused`)
		require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Operations.WithLabelValues(OperationUpload, operationResultError)))
	})
}

func TestStorage_DeleteAndFetch(t *testing.T) {
	provider := &mockProvider{files: map[string][]byte{"photo": []byte("data")}}
	metrics := NewPrometheusMetrics("")
	storage := NewStorage(provider, StorageOpts{Metrics: metrics})

	storage.Delete(context.Background())
	require.Empty(t, provider.deleted)
	storage.Delete(context.Background(), "a", "b")
	require.Equal(t, []string{"a", "b"}, provider.deleted)

	data, err := storage.FetchAsBytes(context.Background(), "photo")
	require.NoError(t, err)
	require.Equal(t, "data", string(data))

	_, err = storage.FetchAsBytes(context.Background(), "unknown")
	require.ErrorIs(t, err, ErrFileNotFound)
	require.EqualError(t, err, `fetch file "unknown": status 404 Not Found`)

	require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Operations.WithLabelValues(OperationDelete, operationResultSuccess)))
	require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Operations.WithLabelValues(OperationFetch, operationResultSuccess)))
	require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.Operations.WithLabelValues(OperationFetch, operationResultError)))
}

func TestStorage_HealthCheck(t *testing.T) {
	provider := &mockProvider{}
	check := NewStorage(provider, StorageOpts{}).HealthCheck()
	require.Equal(t, StorageHealthCheckName, check.Name)
	require.True(t, check.Critical)
	require.NoError(t, check.Check(context.Background()))

	provider.err = errors.New("unreachable")
	require.EqualError(t, check.Check(context.Background()), "unreachable")
}

func TestKeyFromFilename(t *testing.T) {
	tests := map[string]string{
		"photo.png":         "photo",
		"archive.tar.gz":    "archive.tar",
		"README":            "README",
		".env":              "",
		"dir/sub/image.jpg": "image",
		"":                  "",
	}
	for filename, want := range tests {
		require.Equal(t, want, KeyFromFilename(filename), filename)
	}
}
