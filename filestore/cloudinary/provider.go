/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package cloudinary implements filestore.Provider on top of the Cloudinary REST API.
package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/blackeyesartisan/shopkit/filestore"
	"github.com/blackeyesartisan/shopkit/log"
)

// Default values.
const (
	DefaultFolder             = "medusa"
	DefaultAPIBaseURL         = "https://api.cloudinary.com"
	DefaultDeliveryBaseURL    = "https://res.cloudinary.com"
	DefaultResourceType       = "image"
	DefaultMaxParallelDeletes = 10
)

// Results of the destroy call.
const (
	DestroyResultOK       = "ok"
	DestroyResultNotFound = "not found"
)

const maxErrorBodySize = 64 * 1024

// APIError is an error answered by Cloudinary.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudinary API error: status %d: %s", e.StatusCode, e.Message)
}

// Opts represents options for Provider.
type Opts struct {
	CloudName string
	APIKey    string
	APISecret string
	// Folder all uploads are placed in (DefaultFolder by default).
	Folder       string
	UploadPreset string
	// ResourceType is used for deleting and fetching files (DefaultResourceType by default).
	// Uploads are sent with resource_type=auto, so a file stored as raw or video can be
	// deleted or fetched by its key only if ResourceType matches that type.
	// Uploads always use the "auto" resource type.
	ResourceType       string
	APIBaseURL         string
	DeliveryBaseURL    string
	MaxParallelDeletes int
	HTTPClient         *http.Client
	Logger             log.FieldLogger
	Now                func() time.Time
}

// Provider stores files in Cloudinary.
type Provider struct {
	opts       Opts
	httpClient *http.Client
	logger     log.FieldLogger
}

var _ filestore.Provider = (*Provider)(nil)

// New creates a new Provider. Cloud name, API key and API secret are required.
func New(opts Opts) (*Provider, error) {
	if opts.CloudName == "" || opts.APIKey == "" || opts.APISecret == "" {
		return nil, errors.New("cloudinary file provider requires cloud name, API key and API secret")
	}
	if opts.Folder == "" {
		opts.Folder = DefaultFolder
	}
	if opts.ResourceType == "" {
		opts.ResourceType = DefaultResourceType
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = DefaultAPIBaseURL
	}
	if opts.DeliveryBaseURL == "" {
		opts.DeliveryBaseURL = DefaultDeliveryBaseURL
	}
	opts.APIBaseURL = strings.TrimRight(opts.APIBaseURL, "/")
	opts.DeliveryBaseURL = strings.TrimRight(opts.DeliveryBaseURL, "/")
	if opts.MaxParallelDeletes <= 0 {
		opts.MaxParallelDeletes = DefaultMaxParallelDeletes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	p := &Provider{opts: opts, httpClient: httpClient, logger: log.OrDisabled(opts.Logger)}
	p.logger.Info("cloudinary file provider initialized",
		log.String("cloud_name", opts.CloudName), log.String("folder", opts.Folder))
	return p, nil
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Upload uploads the file into the configured folder. The public id is the filename without extension,
// Cloudinary appends a random suffix to it and never overwrites existing files.
func (p *Provider) Upload(ctx context.Context, file filestore.File) (filestore.FileHandle, error) {
	startTime := time.Now()
	params := map[string]string{
		"folder":          p.opts.Folder,
		"public_id":       filestore.KeyFromFilename(file.Filename),
		"overwrite":       "false",
		"unique_filename": "true",
		"upload_preset":   p.opts.UploadPreset,
	}

	var res uploadResponse
	err := p.postMultipart(ctx, p.apiURL("auto", "upload"), p.signParams(params), file, &res)
	if err == nil && (res.PublicID == "" || res.SecureURL == "") {
		err = errors.New("cloudinary answered without public_id or secure_url")
	}
	if err != nil {
		p.logger.Error("failed to upload file to Cloudinary", log.String("filename", file.Filename), log.Error(err))
		return filestore.FileHandle{}, err
	}

	p.logger.Info(fmt.Sprintf("file uploaded to Cloudinary in %dms", time.Since(startTime).Milliseconds()),
		log.String("public_id", res.PublicID), log.String("url", res.SecureURL))
	return filestore.FileHandle{URL: res.SecureURL, Key: res.PublicID}, nil
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Delete destroys the files concurrently. The outcome of every key is logged, nothing is returned.
func (p *Provider) Delete(ctx context.Context, keys ...string) {
	var catcher panics.Catcher
	workers := pool.New().WithMaxGoroutines(p.opts.MaxParallelDeletes)
	for _, key := range keys {
		key := key
		workers.Go(func() {
			catcher.Try(func() { p.deleteOne(ctx, key) })
		})
	}
	workers.Wait()
	if r := catcher.Recovered(); r != nil {
		p.logger.Error("panic during batch file deletion", log.Error(r.AsError()))
	}
}

func (p *Provider) deleteOne(ctx context.Context, publicID string) {
	logger := p.logger.With(log.String("public_id", publicID))
	form := url.Values{}
	for k, v := range p.signParams(map[string]string{"public_id": publicID}) {
		form.Set(k, v)
	}
	var res destroyResponse
	if err := p.postForm(ctx, p.apiURL(p.opts.ResourceType, "destroy"), form, &res); err != nil {
		logger.Error("failed to delete file from Cloudinary", log.Error(err))
		return
	}
	switch res.Result {
	case DestroyResultOK:
		logger.Info("file deleted from Cloudinary")
	case DestroyResultNotFound:
		logger.Warn("file not found in Cloudinary")
	default:
		logger.Warn("unexpected deletion result from Cloudinary", log.String("result", res.Result))
	}
}

// FetchAsBytes downloads the original file from the delivery URL. Errors are returned as is, without retries.
func (p *Provider) FetchAsBytes(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, filestore.ErrInvalidKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.DeliveryURL(key), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file %q: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &filestore.FetchError{Key: key, StatusCode: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", key, err)
	}
	p.logger.Info("file retrieved from Cloudinary", log.String("public_id", key), log.Int("size", len(data)))
	return data, nil
}

// Ping checks the credentials and the reachability of the Admin API.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.opts.APIBaseURL+"/v1_1/"+url.PathEscape(p.opts.CloudName)+"/ping", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(p.opts.APIKey, p.opts.APISecret)
	return p.do(req, nil)
}

// DeliveryURL returns the canonical HTTPS address of the original file.
func (p *Provider) DeliveryURL(publicID string) string {
	segments := strings.Split(publicID, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return p.opts.DeliveryBaseURL + "/" + url.PathEscape(p.opts.CloudName) + "/" +
		p.opts.ResourceType + "/upload/" + strings.Join(segments, "/")
}

func (p *Provider) apiURL(resourceType, action string) string {
	return p.opts.APIBaseURL + "/v1_1/" + url.PathEscape(p.opts.CloudName) + "/" + resourceType + "/" + action
}

// signParams drops empty values and adds timestamp, api_key and signature.
func (p *Provider) signParams(params map[string]string) map[string]string {
	res := make(map[string]string, len(params)+3)
	for k, v := range params {
		if v != "" {
			res[k] = v
		}
	}
	res["timestamp"] = strconv.FormatInt(p.opts.Now().Unix(), 10)
	res["signature"] = Sign(res, p.opts.APISecret)
	res["api_key"] = p.opts.APIKey
	return res
}

func (p *Provider) postMultipart(
	ctx context.Context, endpoint string, params map[string]string, file filestore.File, result interface{},
) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range params {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	filename := file.Filename
	if filename == "" {
		filename = "file"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err = part.Write(file.Content); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err = mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return p.do(req, result)
}

func (p *Provider) postForm(ctx context.Context, endpoint string, form url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req, result)
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) do(req *http.Request, result interface{}) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Message = errResp.Error.Message
		} else if apiErr.Message = strings.TrimSpace(string(data)); apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
