package rabbitmq_consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listing-service/pkg/rabbitmq/rabbitmq_common"
	"listing-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler обрабатывает одно сообщение. Подтверждением управляет Consumer.
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// ConsumerConfig - очередь, привязка и схема ретраев.
//
// Схема ретраев: основная очередь отправляет отклоненные сообщения в RetryExchange,
// оттуда они попадают в RetryQueue и по истечении RetryTTL возвращаются в Exchange.
// После MaxRetries сообщение публикуется в FinalDLXExchange и оседает в FinalDLQ.
type ConsumerConfig struct {
	QueueName    string
	Exchange     string
	ExchangeType string
	RoutingKey   string

	PrefetchCount int
	ConsumerTag   string

	EnableRetryMechanism bool
	RetryExchange        string
	RetryQueue           string
	RetryTTL             time.Duration
	FinalDLXExchange     string
	FinalDLQ             string
	FinalDLQRoutingKey   string
	MaxRetries           int

	Logger rabbitmq_common.Logger
}

func (c ConsumerConfig) Validate() error {
	if c.QueueName == "" {
		return fmt.Errorf("consumer: queue name is required")
	}
	if c.Exchange != "" && c.ExchangeType == "" {
		return fmt.Errorf("consumer: exchange type is required for exchange '%s'", c.Exchange)
	}
	if c.EnableRetryMechanism {
		if c.RetryExchange == "" || c.RetryQueue == "" || c.FinalDLXExchange == "" || c.FinalDLQ == "" {
			return fmt.Errorf("consumer: retry mechanism needs retry exchange/queue and final DLX/DLQ names")
		}
		if c.RetryTTL <= 0 {
			return fmt.Errorf("consumer: retry TTL must be positive")
		}
	}
	return nil
}

// Consumer читает очередь и запускает обработчик для каждого сообщения.
// Одновременно обрабатывается не больше PrefetchCount сообщений.
type Consumer struct {
	config     ConsumerConfig
	connection *amqp.Connection
	channel    *amqp.Channel
	dlx        *rabbitmq_producer.Publisher
	handler    MessageHandler
	wg         sync.WaitGroup

	logger rabbitmq_common.Logger
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer: message handler is required")
	}
	if cfg.PrefetchCount <= 0 {
		cfg.PrefetchCount = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = rabbitmq_common.NewNoopLogger()
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("consumer: failed to get channel from manager: %w", err)
	}

	c := &Consumer{
		config:     cfg,
		connection: conn,
		channel:    ch,
		handler:    handler,
		logger:     logger,
	}

	if err := c.declareTopology(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consumer: topology setup failed: %w", err)
	}

	if cfg.EnableRetryMechanism {
		c.dlx, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			ExchangeName: cfg.FinalDLXExchange,
			Logger:       logger,
		}, connManager)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("consumer: failed to create final DLX publisher: %w", err)
		}
	}

	return c, nil
}

func (c *Consumer) declareTopology() error {
	cfg := c.config

	if err := c.channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if cfg.Exchange != "" {
		c.logger.Debug("Declaring exchange", "name", cfg.Exchange, "type", cfg.ExchangeType)
		if err := c.channel.ExchangeDeclare(cfg.Exchange, cfg.ExchangeType, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange '%s': %w", cfg.Exchange, err)
		}
	}

	queueArgs := amqp.Table{}
	if cfg.EnableRetryMechanism {
		queueArgs["x-dead-letter-exchange"] = cfg.RetryExchange
	}

	c.logger.Debug("Declaring queue", "name", cfg.QueueName)
	if _, err := c.channel.QueueDeclare(cfg.QueueName, true, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", cfg.QueueName, err)
	}

	if cfg.Exchange != "" {
		if err := c.channel.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue '%s' to '%s': %w", cfg.QueueName, cfg.Exchange, err)
		}
	}

	if !cfg.EnableRetryMechanism {
		c.logger.Debug("Setup complete", "queue", cfg.QueueName)
		return nil
	}

	if err := c.channel.ExchangeDeclare(cfg.FinalDLXExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare final DLX: %w", err)
	}
	if _, err := c.channel.QueueDeclare(cfg.FinalDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare final DLQ: %w", err)
	}
	if err := c.channel.QueueBind(cfg.FinalDLQ, cfg.FinalDLQRoutingKey, cfg.FinalDLXExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind final DLQ: %w", err)
	}

	if err := c.channel.ExchangeDeclare(cfg.RetryExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare retry exchange: %w", err)
	}
	// сообщение возвращается в основной обменник с исходным ключом маршрутизации
	_, err := c.channel.QueueDeclare(cfg.RetryQueue, true, false, false, false, amqp.Table{
		"x-message-ttl":          int32(cfg.RetryTTL / time.Millisecond),
		"x-dead-letter-exchange": cfg.Exchange,
	})
	if err != nil {
		return fmt.Errorf("failed to declare retry-wait queue: %w", err)
	}
	if err := c.channel.QueueBind(cfg.RetryQueue, "", cfg.RetryExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind retry-wait queue: %w", err)
	}

	c.logger.Debug("Setup complete with retry mechanism", "queue", cfg.QueueName, "max_retries", cfg.MaxRetries)
	return nil
}

// StartConsuming блокируется до отмены ctx или закрытия соединения брокером
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.channel == nil || c.connection == nil || c.connection.IsClosed() {
		return fmt.Errorf("consumer: not connected")
	}

	msgs, err := c.channel.Consume(c.config.QueueName, c.config.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer: failed to register on queue '%s': %w", c.config.QueueName, err)
	}
	c.logger.Info("Waiting for messages", "queue", c.config.QueueName)

	notifyClose := c.connection.NotifyClose(make(chan *amqp.Error, 1))
	slots := make(chan struct{}, c.config.PrefetchCount)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping consumption", "queue", c.config.QueueName)
			return nil
		case amqpErr := <-notifyClose:
			if amqpErr == nil {
				return nil
			}
			c.logger.Error(amqpErr, "Connection closed by broker", "queue", c.config.QueueName)
			return amqpErr
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("Deliveries channel closed", "queue", c.config.QueueName)
				return nil
			}
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
			c.wg.Add(1)
			go func(delivery amqp.Delivery) {
				defer func() {
					<-slots
					c.wg.Done()
				}()
				c.process(ctx, delivery)
			}(d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	handlerErr := c.handler(ctx, d)
	deaths := DeathCount(d.Headers, c.config.QueueName)
	outcome := Decide(handlerErr, deaths, c.config.MaxRetries, c.config.EnableRetryMechanism)

	if handlerErr != nil {
		c.logger.Error(handlerErr, "Handler failed",
			"delivery_tag", d.DeliveryTag,
			"death_count", deaths,
			"outcome", outcome.String())
	}

	switch outcome {
	case OutcomeAck:
		_ = d.Ack(false)
	case OutcomeRetry, OutcomeDrop:
		_ = d.Nack(false, false)
	case OutcomeDeadLetter:
		err := c.dlx.Publish(context.WithoutCancel(ctx), c.config.FinalDLQRoutingKey, amqp.Publishing{
			ContentType:  d.ContentType,
			Body:         d.Body,
			Headers:      d.Headers,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		})
		if err != nil {
			// не смогли отложить в DLQ, отдаем сообщение на следующий круг ретраев
			c.logger.Error(err, "Failed to publish to final DLX", "delivery_tag", d.DeliveryTag)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
	}
}

// Close дожидается обработчиков и закрывает каналы
func (c *Consumer) Close() error {
	c.wg.Wait()

	var firstErr error
	if c.dlx != nil {
		if err := c.dlx.Close(); err != nil {
			firstErr = err
		}
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.channel = nil
	}
	c.logger.Info("Consumer closed", "queue", c.config.QueueName)
	return firstErr
}
