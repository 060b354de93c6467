/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package filestore

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/httpserver"
	"github.com/blackeyesartisan/shopkit/log"
)

// DefaultSizeLimit is the default maximum size of an uploaded file.
const DefaultSizeLimit = 10 * 1024 * 1024

// StorageHealthCheckName is the name under which the storage reachability is reported.
const StorageHealthCheckName = "storage"

// StorageOpts represents options for Storage.
type StorageOpts struct {
	// SizeLimit is the maximum size of an uploaded file. Zero means no limit.
	SizeLimit config.ByteSize
	Logger    log.FieldLogger
	Metrics   *PrometheusMetrics
}

// Storage wraps a Provider. Files bigger than the size limit are rejected
// before the provider is contacted.
type Storage struct {
	provider  Provider
	sizeLimit int64
	logger    log.FieldLogger
	metrics   *PrometheusMetrics
}

var _ Provider = (*Storage)(nil)

// NewStorage creates a new Storage.
func NewStorage(provider Provider, opts StorageOpts) *Storage {
	return &Storage{
		provider:  provider,
		sizeLimit: int64(opts.SizeLimit), //nolint:gosec
		logger:    log.OrDisabled(opts.Logger),
		metrics:   opts.Metrics,
	}
}

// SizeLimit returns the maximum size of an uploaded file in bytes.
func (s *Storage) SizeLimit() int64 {
	return s.sizeLimit
}

// Upload checks the file and passes it to the provider.
func (s *Storage) Upload(ctx context.Context, file File) (FileHandle, error) {
	if len(file.Content) == 0 {
		s.metrics.incOperation(OperationUpload, operationResultRejected)
		return FileHandle{}, ErrEmptyFile
	}
	if s.sizeLimit > 0 && int64(len(file.Content)) > s.sizeLimit {
		s.metrics.incOperation(OperationUpload, operationResultRejected)
		return FileHandle{}, &TooLargeError{Size: int64(len(file.Content)), Limit: s.sizeLimit}
	}
	if file.MimeType == "" {
		file.MimeType = mimetype.Detect(file.Content).String()
	}

	handle, err := s.provider.Upload(ctx, file)
	if err != nil {
		s.metrics.incOperation(OperationUpload, operationResultError)
		return FileHandle{}, fmt.Errorf("upload file %q: %w", file.Filename, err)
	}
	s.metrics.incOperation(OperationUpload, operationResultSuccess)
	s.metrics.observeUpload(len(file.Content))
	return handle, nil
}

// Delete removes files by keys.
func (s *Storage) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	s.provider.Delete(ctx, keys...)
	s.metrics.incOperation(OperationDelete, operationResultSuccess)
}

// FetchAsBytes returns the content of the file.
func (s *Storage) FetchAsBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := s.provider.FetchAsBytes(ctx, key)
	if err != nil {
		s.metrics.incOperation(OperationFetch, operationResultError)
		s.logger.Error("failed to fetch file", log.String("key", key), log.Error(err))
		return nil, err
	}
	s.metrics.incOperation(OperationFetch, operationResultSuccess)
	return data, nil
}

// Ping checks that the provider is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.provider.Ping(ctx)
}

// HealthCheck returns the critical health check of the storage.
func (s *Storage) HealthCheck() httpserver.HealthCheck {
	return httpserver.HealthCheck{Name: StorageHealthCheckName, Critical: true, Check: s.Ping}
}
