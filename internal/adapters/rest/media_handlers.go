package rest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

type MediaHandler struct {
	attachUC usecases_port.AttachMediaUseCasePort
	removeUC usecases_port.RemoveMediaUseCasePort
	guard    ownerGuard

	maxUploadBytes int64
}

func NewMediaHandler(
	attachUC usecases_port.AttachMediaUseCasePort,
	removeUC usecases_port.RemoveMediaUseCasePort,
	getUC usecases_port.GetPropertyUseCasePort,
	maxUploadBytes int64,
) *MediaHandler {
	return &MediaHandler{
		attachUC:       attachUC,
		removeUC:       removeUC,
		guard:          ownerGuard{getUC: getUC},
		maxUploadBytes: maxUploadBytes,
	}
}

// readMultipartFiles читает все файлы поля формы в память
func readMultipartFiles(form *multipart.Form, field string) ([]domain.MediaFile, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File[field]
	files := make([]domain.MediaFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		files = append(files, domain.MediaFile{Name: fh.Filename, ContentType: contentType, Data: data})
	}
	return files, nil
}

// AttachMedia обрабатывает POST /api/v1/properties/{propertyID}/media/{kind}.
// Если часть файлов не загрузилась, отвечает 207 со списком успешных ссылок и ошибок.
func (h *MediaHandler) AttachMedia(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "AttachMedia"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	kind, err := domain.ParseMediaKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if _, err := h.guard.authorize(r.Context(), propertyID, false); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Warn("Failed to parse multipart form", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files, err := readMultipartFiles(r.MultipartForm, "files")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Could not read uploaded files")
		return
	}

	urls, err := h.attachUC.Execute(r.Context(), propertyID, kind, files)
	var batch *domain.MediaBatchError
	switch {
	case err == nil:
		RespondWithJSON(w, http.StatusCreated, MediaResponse{Kind: string(kind), URLs: nonNil(urls)})
	case errors.As(err, &batch):
		logger.Warn("Some media files failed to upload", port.Fields{"failed": len(batch.Failures), "uploaded": len(urls)})
		RespondWithJSON(w, http.StatusMultiStatus, MediaResponse{Kind: string(kind), URLs: nonNil(urls), Failures: batch.Failures})
	default:
		writeDomainError(w, logger, err)
	}
}

// RemoveMedia обрабатывает DELETE /api/v1/properties/{propertyID}/media?url=...
func (h *MediaHandler) RemoveMedia(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "RemoveMedia"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		writeDomainError(w, logger, domain.NewValidationError("media url is required", "url"))
		return
	}
	if _, err := h.guard.authorize(r.Context(), propertyID, false); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	if err := h.removeUC.Execute(r.Context(), propertyID, url); err != nil {
		writeDomainError(w, logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
