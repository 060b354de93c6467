/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package filestore stores uploaded files (product images, documents) in an object storage.
// Providers implement the raw operations, Storage adds the upload size limit,
// content type detection and metrics on top of any Provider.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
)

// ErrFileNotFound is returned by FetchAsBytes when there is no file with the given key.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidKey is returned for keys that cannot address a stored file.
var ErrInvalidKey = errors.New("invalid file key")

// ErrEmptyFile is returned when uploading a file without content.
var ErrEmptyFile = errors.New("file is empty")

// File is a file to be uploaded.
type File struct {
	Content  []byte
	Filename string
	// MimeType is detected from the content when empty.
	MimeType string
}

// FileHandle addresses an uploaded file.
type FileHandle struct {
	// URL is the public (HTTPS for cloud providers) address of the file.
	URL string `json:"url"`
	// Key identifies the file for deletion and fetching.
	Key string `json:"key"`
}

// Provider is an object storage.
type Provider interface {
	// Upload stores the file. An existing file is never overwritten.
	Upload(ctx context.Context, file File) (FileHandle, error)
	// Delete removes files by keys. Failures are logged per key and never fail the whole batch.
	Delete(ctx context.Context, keys ...string)
	// FetchAsBytes returns the content of the file.
	FetchAsBytes(ctx context.Context, key string) ([]byte, error)
	// Ping checks that the storage is reachable.
	Ping(ctx context.Context) error
}

// FetchError is returned by FetchAsBytes when the storage answers with a non-2xx status.
type FetchError struct {
	Key        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch file %q: status %d %s", e.Key, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is makes errors.Is(err, ErrFileNotFound) true for 404 answers.
func (e *FetchError) Is(target error) bool {
	return target == ErrFileNotFound && e.StatusCode == http.StatusNotFound
}

// TooLargeError is returned when the uploaded file exceeds the size limit.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file size %d bytes exceeds the limit of %d bytes", e.Size, e.Limit)
}

// KeyFromFilename strips the extension from the filename ("photo.v2.png" becomes "photo.v2").
// An empty result means the key should be generated by the storage.
func KeyFromFilename(filename string) string {
	base := path.Base(filename)
	if base == "." || base == "/" {
		return ""
	}
	return base[:len(base)-len(path.Ext(base))]
}
