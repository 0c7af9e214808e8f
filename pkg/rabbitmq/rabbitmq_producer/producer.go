package rabbitmq_producer

import (
	"context"
	"fmt"
	"sync"

	"listing-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublisherConfig - обменник, в который пишет производитель
type PublisherConfig struct {
	ExchangeName    string
	ExchangeType    string // direct, fanout, topic, headers
	DurableExchange bool

	// если false, обменник должен уже существовать
	DeclareExchange bool

	Logger rabbitmq_common.Logger
}

func (c PublisherConfig) Validate() error {
	if c.DeclareExchange && (c.ExchangeName == "" || c.ExchangeType == "") {
		return fmt.Errorf("producer: exchange name and type are required to declare an exchange")
	}
	return nil
}

// Publisher публикует сообщения в один обменник. Канал amqp не потокобезопасен
// для публикации, поэтому вызовы Publish сериализуются.
type Publisher struct {
	config     PublisherConfig
	connection *amqp.Connection
	channel    *amqp.Channel
	mu         sync.Mutex

	logger rabbitmq_common.Logger
}

func NewPublisher(cfg PublisherConfig, connManager *rabbitmq_common.ConnectionManager) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = rabbitmq_common.NewNoopLogger()
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("producer: failed to get channel from manager: %w", err)
	}

	if cfg.DeclareExchange {
		logger.Debug("Declaring exchange", "name", cfg.ExchangeName, "type", cfg.ExchangeType)
		err = ch.ExchangeDeclare(
			cfg.ExchangeName,
			cfg.ExchangeType,
			cfg.DurableExchange,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("producer: failed to declare exchange '%s': %w", cfg.ExchangeName, err)
		}
	}

	logger.Debug("Publisher ready", "exchange", cfg.ExchangeName)
	return &Publisher{
		config:     cfg,
		connection: conn,
		channel:    ch,
		logger:     logger,
	}, nil
}

// Publish отправляет сообщение в обменник производителя
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.connection == nil || p.connection.IsClosed() {
		return fmt.Errorf("producer: channel or connection is closed")
	}

	err := p.channel.PublishWithContext(ctx, p.config.ExchangeName, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("producer: failed to publish message: %w", err)
	}
	return nil
}

// Close закрывает канал. Соединение принадлежит ConnectionManager.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	if err != nil {
		p.logger.Error(err, "Error closing publisher channel")
		return err
	}
	p.logger.Info("Publisher closed", "exchange", p.config.ExchangeName)
	return nil
}
