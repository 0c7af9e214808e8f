package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ObjectStorage - хранилище объектов в памяти. PutHook позволяет тестам
// подменить результат загрузки отдельного ключа.
type ObjectStorage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
	types   map[string]string

	PutHook    func(key string) error
	DeleteHook func(key string) error
}

func NewObjectStorage(baseURL string) *ObjectStorage {
	return &ObjectStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (o *ObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if o.PutHook != nil {
		if err := o.PutHook(key); err != nil {
			return "", err
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.objects[key] = append([]byte(nil), data...)
	o.types[key] = contentType
	return o.baseURL + "/" + key, nil
}

func (o *ObjectStorage) Delete(ctx context.Context, key string) error {
	if o.DeleteHook != nil {
		if err := o.DeleteHook(key); err != nil {
			return err
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.objects, key)
	delete(o.types, key)
	return nil
}

func (o *ObjectStorage) KeyFromURL(url string) (string, error) {
	prefix := o.baseURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", fmt.Errorf("url %q is not served by this storage", url)
	}
	return strings.TrimPrefix(url, prefix), nil
}

// Object возвращает сохраненный объект и его тип
func (o *ObjectStorage) Object(key string) ([]byte, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, ok := o.objects[key]
	return data, o.types[key], ok
}

func (o *ObjectStorage) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}
