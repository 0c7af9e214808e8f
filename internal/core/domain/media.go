package domain

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaKind - в какой список объявления попадает файл
type MediaKind string

const (
	MediaImages    MediaKind = "images"
	MediaDocuments MediaKind = "documents"
)

func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(s)) {
	case MediaImages:
		return MediaImages, nil
	case MediaDocuments:
		return MediaDocuments, nil
	}
	return "", NewValidationError("media kind must be 'images' or 'documents'", "kind")
}

// MediaFile - загружаемый файл
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f MediaFile) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// MediaFailure - один неудавшийся файл пакета
type MediaFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// MediaBatchError - часть файлов пакета не загрузилась. Успешные ссылки
// уже прикреплены к объявлению.
type MediaBatchError struct {
	Failures []MediaFailure
}

func (e *MediaBatchError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("%d media file(s) failed: %s", len(e.Failures), strings.Join(names, ", "))
}

// MediaObjectKey строит ключ объекта в хранилище: <propertyId>/<unixNano>-<имя файла>.
// От имени остается только базовая часть, чтобы нельзя было выйти из префикса объявления.
func MediaObjectKey(propertyID uuid.UUID, at time.Time, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%d-%s", propertyID, at.UnixNano(), base)
}
