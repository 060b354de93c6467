/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package filestore

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
)

// UploadsPath is the admin endpoint for uploading files.
// Files are addressed by key under it: GET and DELETE /admin/uploads/{key}.
const UploadsPath = "/admin/uploads"

// UploadsFormField is the multipart form field carrying the files.
const UploadsFormField = "files"

const multipartMaxMemory = 32 << 20

// UploadsResponse is the body of a successful upload.
type UploadsResponse struct {
	Files []FileHandle `json:"files"`
}

// UploadsHandler exposes the Storage over HTTP.
type UploadsHandler struct {
	storage   *Storage
	errDomain string
}

// NewUploadsHandler creates a new UploadsHandler.
func NewUploadsHandler(storage *Storage, errDomain string) *UploadsHandler {
	return &UploadsHandler{storage: storage, errDomain: errDomain}
}

// Routes registers the uploads endpoints in the router.
func (h *UploadsHandler) Routes(router chi.Router) {
	router.Post(UploadsPath, h.upload)
	router.Get(UploadsPath+"/*", h.fetch)
	router.Delete(UploadsPath+"/*", h.delete)
}

func (h *UploadsHandler) upload(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondTooLarge(rw, logger, maxBytesErr.Limit)
			return
		}
		h.respondBadRequest(rw, logger, "Multipart form is expected.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[UploadsFormField]
	if len(headers) == 0 {
		h.respondBadRequest(rw, logger, `No files in the "`+UploadsFormField+`" field.`)
		return
	}

	if limit := h.storage.SizeLimit(); limit > 0 {
		for _, fh := range headers {
			if fh.Size > limit {
				h.respondTooLarge(rw, logger, limit)
				return
			}
		}
	}

	resp := UploadsResponse{Files: make([]FileHandle, 0, len(headers))}
	for _, fh := range headers {
		file, err := readFormFile(fh)
		if err != nil {
			h.rollback(r, resp.Files)
			h.respondBadRequest(rw, logger, "Cannot read the uploaded file.")
			return
		}
		handle, err := h.storage.Upload(r.Context(), file)
		if err != nil {
			h.rollback(r, resp.Files)
			h.respondUploadError(rw, logger, err)
			return
		}
		resp.Files = append(resp.Files, handle)
	}
	restapi.RespondJSON(rw, resp, logger)
}

// rollback removes the files stored by a partially failed upload,
// their keys are never returned to the client.
func (h *UploadsHandler) rollback(r *http.Request, stored []FileHandle) {
	if len(stored) == 0 {
		return
	}
	keys := make([]string, 0, len(stored))
	for _, fh := range stored {
		keys = append(keys, fh.Key)
	}
	h.storage.Delete(context.WithoutCancel(r.Context()), keys...)
}

func (h *UploadsHandler) fetch(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	data, err := h.storage.FetchAsBytes(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidKey):
			h.respondBadRequest(rw, logger, "Invalid file key.")
		case errors.Is(err, ErrFileNotFound):
			restapi.RespondError(rw, http.StatusNotFound,
				restapi.NewError(h.errDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound), logger)
		default:
			restapi.RespondError(rw, http.StatusBadGateway,
				restapi.NewError(h.errDomain, restapi.ErrCodeBadGateway, restapi.ErrMessageBadGateway), logger)
		}
		return
	}
	rw.Header().Set("Content-Type", mimetype.Detect(data).String())
	rw.WriteHeader(http.StatusOK)
	if _, err = rw.Write(data); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

func (h *UploadsHandler) delete(rw http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		h.respondBadRequest(rw, middleware.GetLoggerFromContext(r.Context()), "Invalid file key.")
		return
	}
	h.storage.Delete(r.Context(), key)
	rw.WriteHeader(http.StatusNoContent)
}

func (h *UploadsHandler) respondUploadError(rw http.ResponseWriter, logger log.FieldLogger, err error) {
	var tooLargeErr *TooLargeError
	switch {
	case errors.As(err, &tooLargeErr):
		h.respondTooLarge(rw, logger, tooLargeErr.Limit)
	case errors.Is(err, ErrEmptyFile):
		h.respondBadRequest(rw, logger, "File is empty.")
	default:
		if logger != nil {
			logger.Error("file upload failed", log.Error(err))
		}
		restapi.RespondError(rw, http.StatusBadGateway,
			restapi.NewError(h.errDomain, restapi.ErrCodeBadGateway, restapi.ErrMessageBadGateway), logger)
	}
}

func (h *UploadsHandler) respondTooLarge(rw http.ResponseWriter, logger log.FieldLogger, limit int64) {
	apiErr := restapi.NewError(h.errDomain, restapi.ErrCodeTooLarge, restapi.ErrMessageTooLarge).
		AddContext("maxSize", limit)
	restapi.RespondError(rw, http.StatusRequestEntityTooLarge, apiErr, logger)
}

func (h *UploadsHandler) respondBadRequest(rw http.ResponseWriter, logger log.FieldLogger, message string) {
	restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(h.errDomain, restapi.ErrCodeBadRequest, message), logger)
}

func readFormFile(fh *multipart.FileHeader) (File, error) {
	f, err := fh.Open()
	if err != nil {
		return File{}, err
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		return File{}, err
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}
	return File{Content: content, Filename: fh.Filename, MimeType: mimeType}, nil
}
