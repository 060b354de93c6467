/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blackeyesartisan/shopkit/log"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalProviderOpts represents options for LocalProvider.
type LocalProviderOpts struct {
	// Dir is the directory the files are stored in. It's created if missing.
	Dir string
	// BaseURL is the address the directory is served under.
	BaseURL string
	Logger  log.FieldLogger
	// NewID generates the unique part of keys.
	NewID func() string
}

// LocalProvider stores files on the local disk.
// It's used when no cloud storage is configured (development, single-node setups).
type LocalProvider struct {
	dir     string
	baseURL string
	logger  log.FieldLogger
	newID   func() string
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a new LocalProvider.
func NewLocalProvider(opts LocalProviderOpts) (*LocalProvider, error) {
	if opts.Dir == "" {
		return nil, errors.New("local storage directory is required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("local storage base URL is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &LocalProvider{
		dir:     opts.Dir,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  log.OrDisabled(opts.Logger),
		newID:   opts.NewID,
	}, nil
}

// Upload writes the file under a new unique key that keeps the original name and extension.
func (p *LocalProvider) Upload(_ context.Context, file File) (FileHandle, error) {
	startTime := time.Now()
	key := p.newID()
	if name := unsafeKeyChars.ReplaceAllString(KeyFromFilename(file.Filename), "-"); strings.Trim(name, ".-") != "" {
		key = name + "-" + key
	}
	key += unsafeKeyChars.ReplaceAllString(strings.ToLower(path.Ext(path.Base(file.Filename))), "")

	f, err := os.OpenFile(filepath.Join(p.dir, key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		p.logger.Error("failed to upload file to local storage", log.String("filename", file.Filename), log.Error(err))
		return FileHandle{}, err
	}
	if _, err = f.Write(file.Content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		p.logger.Error("failed to upload file to local storage", log.String("filename", file.Filename), log.Error(err))
		return FileHandle{}, err
	}
	if err = f.Close(); err != nil {
		return FileHandle{}, err
	}

	handle := FileHandle{URL: p.baseURL + "/" + url.PathEscape(key), Key: key}
	p.logger.Info(fmt.Sprintf("file uploaded to local storage in %dms", time.Since(startTime).Milliseconds()),
		log.String("key", handle.Key), log.String("url", handle.URL))
	return handle, nil
}

// Delete removes the files. Missing files are reported with a warning.
func (p *LocalProvider) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		logger := p.logger.With(log.String("key", key))
		filePath, err := p.filePath(key)
		if err != nil {
			logger.Error("failed to delete file from local storage", log.Error(err))
			continue
		}
		err = os.Remove(filePath)
		switch {
		case err == nil:
			logger.Info("file deleted from local storage")
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("file not found in local storage")
		default:
			logger.Error("failed to delete file from local storage", log.Error(err))
		}
	}
}

// FetchAsBytes reads the file.
func (p *LocalProvider) FetchAsBytes(_ context.Context, key string) ([]byte, error) {
	filePath, err := p.filePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FetchError{Key: key, StatusCode: http.StatusNotFound}
		}
		return nil, err
	}
	return data, nil
}

// Ping checks that the storage directory exists.
func (p *LocalProvider) Ping(_ context.Context) error {
	fi, err := os.Stat(p.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", p.dir)
	}
	return nil
}

// Handler serves the stored files. It's expected to be mounted under the base URL path.
func (p *LocalProvider) Handler() http.Handler {
	return http.FileServer(http.Dir(p.dir))
}

func (p *LocalProvider) filePath(key string) (string, error) {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) || strings.ContainsRune(key, '/') {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(p.dir, key), nil
}
