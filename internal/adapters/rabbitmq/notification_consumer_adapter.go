package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"listing-service/internal/contextkeys"
	"listing-service/internal/contracts"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"
	"listing-service/pkg/rabbitmq/rabbitmq_common"
	"listing-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationConsumerAdapter - цикл доставки: читает очередь уведомлений
// и передает каждую запись в use case диспетчеризации
type NotificationConsumerAdapter struct {
	consumer *rabbitmq_consumer.Consumer
	useCase  usecases_port.DispatchNotificationUseCasePort
	logger   port.LoggerPort
}

func NewNotificationConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.DispatchNotificationUseCasePort,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*NotificationConsumerAdapter, error) {
	adapter := newNotificationHandler(useCase, logger)

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_consumer", "queue": consumerCfg.QueueName})
	consumerCfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewConsumer(consumerCfg, adapter.handleDelivery, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for notifications: %w", err)
	}
	adapter.consumer = consumer
	return adapter, nil
}

func newNotificationHandler(useCase usecases_port.DispatchNotificationUseCasePort, logger port.LoggerPort) *NotificationConsumerAdapter {
	return &NotificationConsumerAdapter{
		useCase: useCase,
		logger:  logger.WithFields(port.Fields{"component": "NotificationConsumerAdapter"}),
	}
}

// handleDelivery: битое или не прошедшее контракт сообщение сразу уходит в DLQ,
// ошибки доставки повторяются через retry-очередь
func (a *NotificationConsumerAdapter) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	traceID, ok := d.Headers["x-trace-id"].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
	})
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	eventType, _ := d.Headers["event-type"].(string)
	eventVersion, _ := d.Headers["event-version"].(string)
	if err := contracts.ValidateEvent(eventType, eventVersion, d.Body); err != nil {
		msgLogger.Error("Message failed contract validation", err, port.Fields{
			"event_type":    eventType,
			"event_version": eventVersion,
		})
		return rabbitmq_consumer.Permanent(fmt.Errorf("contract validation: %w", err))
	}

	var dto NotificationRequestedDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		msgLogger.Error("Error unmarshalling DTO", err, nil)
		return rabbitmq_consumer.Permanent(fmt.Errorf("unmarshal DTO error: %w", err))
	}

	record := dto.toDomain()
	recordLogger := msgLogger.WithFields(port.Fields{
		"notification_id": record.ID.String(),
		"recipient_id":    record.RecipientID.String(),
	})
	ctx = contextkeys.ContextWithLogger(ctx, recordLogger)

	if err := a.useCase.Execute(ctx, record); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return rabbitmq_consumer.Permanent(err)
		}
		recordLogger.Warn("Dispatch failed, message will be retried", port.Fields{"error": err.Error()})
		return err
	}

	recordLogger.Info("Notification dispatched", nil)
	return nil
}

// Start реализует EventListenerPort
func (a *NotificationConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close реализует EventListenerPort
func (a *NotificationConsumerAdapter) Close() error {
	return a.consumer.Close()
}
