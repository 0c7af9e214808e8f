package rabbitmq_common

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultReconnectInterval = 5 * time.Second

// ConnectionManager держит одно соединение на процесс и раздает из него каналы.
// Закрытое брокером соединение восстанавливается в фоне.
type ConnectionManager struct {
	cfg        Config
	connection *amqp.Connection
	mutex      sync.RWMutex
	logger     Logger

	reconnectInterval time.Duration
	stop              context.CancelFunc
	loopDone          chan struct{}
}

// NewConnectionManager подключается сразу и запускает фоновое переподключение.
// Фоновый цикл живет до Close или отмены ctx.
func NewConnectionManager(ctx context.Context, cfg Config, logger Logger) (*ConnectionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewNoopLogger()
	}

	m := &ConnectionManager{
		cfg:               cfg,
		logger:            logger,
		reconnectInterval: defaultReconnectInterval,
		loopDone:          make(chan struct{}),
	}
	if _, err := m.getConnection(); err != nil {
		logger.Error(err, "Initial connection failed")
		return nil, fmt.Errorf("initial connection failed: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.stop = cancel
	go m.watch(loopCtx)

	return m, nil
}

func (m *ConnectionManager) getConnection() (*amqp.Connection, error) {
	m.mutex.RLock()
	if m.connection != nil && !m.connection.IsClosed() {
		conn := m.connection
		m.mutex.RUnlock()
		return conn, nil
	}
	m.mutex.RUnlock()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	// могли переподключиться, пока ждали блокировку
	if m.connection != nil && !m.connection.IsClosed() {
		return m.connection, nil
	}

	m.logger.Debug("Connecting to RabbitMQ")
	conn, err := amqp.Dial(m.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	m.connection = conn
	m.logger.Info("Connected to RabbitMQ")
	return conn, nil
}

// GetChannel открывает новый канал на общем соединении
func (m *ConnectionManager) GetChannel() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := m.getConnection()
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return conn, nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return conn, ch, nil
}

func (m *ConnectionManager) watch(ctx context.Context) {
	defer close(m.loopDone)

	ticker := time.NewTicker(m.reconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mutex.RLock()
		healthy := m.connection == nil || !m.connection.IsClosed()
		m.mutex.RUnlock()
		if healthy {
			continue
		}

		m.logger.Warn("Detected closed connection, reconnecting")
		if _, err := m.getConnection(); err != nil {
			m.logger.Error(err, "Reconnect failed")
		}
	}
}

// Close останавливает фоновый цикл и закрывает соединение
func (m *ConnectionManager) Close() error {
	if m.stop != nil {
		m.stop()
		<-m.loopDone
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.connection == nil || m.connection.IsClosed() {
		m.logger.Debug("Connection was already closed")
		return nil
	}
	if err := m.connection.Close(); err != nil {
		m.logger.Error(err, "Failed to close connection")
		return err
	}
	m.logger.Info("RabbitMQ connection closed")
	return nil
}
