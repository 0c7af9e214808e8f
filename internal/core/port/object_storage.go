package port

import (
	"context"
)

// ObjectStoragePort - хранилище бинарных объектов (фото и документы объявлений).
type ObjectStoragePort interface {
	// Put сохраняет объект и возвращает его публичную ссылку.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL восстанавливает ключ объекта по публичной ссылке.
	KeyFromURL(url string) (string, error)
}

// ImageCompressorPort уменьшает изображение перед загрузкой.
type ImageCompressorPort interface {
	// Compress возвращает новые байты и тип содержимого. Если изображение
	// не удалось декодировать, возвращается ошибка, а вызывающий загружает оригинал.
	Compress(data []byte, contentType string) ([]byte, string, error)
}
