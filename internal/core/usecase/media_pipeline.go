package usecase

import (
	"context"
	"fmt"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MediaConfig - настройки загрузки медиа
type MediaConfig struct {
	// Workers - сколько файлов загружается одновременно
	Workers int
	Retry   RetryPolicy
}

// MediaPipeline сжимает и загружает файлы, затем дописывает ссылки в объявление.
// Используется и при создании объявления, и при отдельной загрузке медиа.
type MediaPipeline struct {
	storage    port.ObjectStoragePort
	compressor port.ImageCompressorPort
	repo       port.PropertyRepositoryPort
	cfg        MediaConfig
	now        func() time.Time
}

func NewMediaPipeline(storage port.ObjectStoragePort, compressor port.ImageCompressorPort, repo port.PropertyRepositoryPort, cfg MediaConfig) *MediaPipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	return &MediaPipeline{
		storage:    storage,
		compressor: compressor,
		repo:       repo,
		cfg:        cfg,
		now:        utcNow,
	}
}

type uploadResult struct {
	url string
	err error
}

// Attach загружает файлы и прикрепляет успешные ссылки к списку kind.
// Порядок ссылок совпадает с порядком файлов. Сбой отдельного файла
// попадает в *domain.MediaBatchError, остальные файлы при этом сохраняются.
func (m *MediaPipeline) Attach(ctx context.Context, propertyID uuid.UUID, kind domain.MediaKind, files []domain.MediaFile) ([]string, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "MediaPipeline",
		"property_id": propertyID.String(),
		"media_kind":  string(kind),
	})

	results := make([]uploadResult, len(files))

	// Ошибки отдельных файлов не останавливают группу, поэтому g.Wait всегда nil
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, file := range files {
		g.Go(func() error {
			url, err := m.upload(gctx, propertyID, kind, file, logger)
			results[i] = uploadResult{url: url, err: err}
			return nil
		})
	}
	_ = g.Wait()

	urls := make([]string, 0, len(files))
	var failures []domain.MediaFailure
	for i, r := range results {
		if r.err != nil {
			logger.Error("Media upload failed", r.err, port.Fields{"file": files[i].Name})
			failures = append(failures, domain.MediaFailure{Name: files[i].Name, Error: r.err.Error()})
			continue
		}
		urls = append(urls, r.url)
	}

	if len(urls) > 0 {
		if err := m.repo.AppendMedia(ctx, propertyID, kind, urls, m.now()); err != nil {
			logger.Error("Failed to attach uploaded media to property", err, port.Fields{"uploaded": len(urls)})
			return nil, err
		}
	}

	logger.Info("Media batch processed", port.Fields{"uploaded": len(urls), "failed": len(failures)})

	if len(failures) > 0 {
		return urls, &domain.MediaBatchError{Failures: failures}
	}
	return urls, nil
}

func (m *MediaPipeline) upload(ctx context.Context, propertyID uuid.UUID, kind domain.MediaKind, file domain.MediaFile, logger port.LoggerPort) (string, error) {
	if len(file.Data) == 0 {
		return "", domain.NewValidationError(fmt.Sprintf("file %q is empty", file.Name), "files")
	}

	data, contentType := file.Data, file.ContentType
	if kind == domain.MediaImages && m.compressor != nil && file.IsImage() {
		compressed, ct, err := m.compressor.Compress(file.Data, file.ContentType)
		if err != nil {
			logger.Warn("Image could not be compressed, uploading original", port.Fields{"file": file.Name, "error": err.Error()})
		} else {
			data, contentType = compressed, ct
		}
	}

	key := domain.MediaObjectKey(propertyID, m.now(), file.Name)
	return withRetry(ctx, m.cfg.Retry, logger, "object_storage.put", func() (string, error) {
		return m.storage.Put(ctx, key, data, contentType)
	})
}
