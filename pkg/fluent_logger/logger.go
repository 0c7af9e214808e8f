package fluentlogger

import (
	"fmt"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// Config - подключение к Fluent Bit по forward-протоколу
type Config struct {
	Host      string // "127.0.0.1" или "fluent-bit" в Docker
	Port      int    // обычно 24224
	TagPrefix string // префикс тегов, обычно имя сервиса
	Timeout   time.Duration
	// Async - не блокировать запись лога на сетевой отправке
	Async bool
}

func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("fluent host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("fluent port %d is out of range", c.Port)
	}
	if c.TagPrefix == "" {
		return fmt.Errorf("fluent tag prefix is required")
	}
	return nil
}

// NewClient создает клиента Fluent Bit. Соединение не проверяется:
// ошибки появятся при первой отправке записи.
func NewClient(cfg Config) (*fluent.Fluent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	client, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Host,
		FluentPort:   cfg.Port,
		TagPrefix:    cfg.TagPrefix,
		Timeout:      cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		Async:        cfg.Async,
		MaxRetry:     5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluent client: %w", err)
	}
	return client, nil
}
