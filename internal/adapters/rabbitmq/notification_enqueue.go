package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"listing-service/internal/constants"
	"listing-service/internal/contextkeys"
	"listing-service/internal/contracts"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// publisher - то, что адаптеру нужно от rabbitmq_producer.Publisher
type publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// RabbitMQNotificationQueueAdapter реализует NotificationQueuePort поверх RabbitMQ
type RabbitMQNotificationQueueAdapter struct {
	producer   publisher
	routingKey string
}

func NewRabbitMQNotificationQueueAdapter(producer publisher, routingKey string) (*RabbitMQNotificationQueueAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &RabbitMQNotificationQueueAdapter{producer: producer, routingKey: routingKey}, nil
}

// Enqueue публикует запись как событие NotificationRequestedEvent
func (a *RabbitMQNotificationQueueAdapter) Enqueue(ctx context.Context, record domain.NotificationRecord) error {
	adapterLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":       "RabbitMQNotificationQueueAdapter",
		"routing_key":     a.routingKey,
		"notification_id": record.ID.String(),
	})

	body, err := json.Marshal(toNotificationDTO(record))
	if err != nil {
		adapterLogger.Error("Failed to marshal notification", err, nil)
		return domain.NewValidationError(fmt.Sprintf("notification cannot be encoded: %v", err), "payload")
	}

	// запись, не прошедшая контракт, не пройдет его и при повторе
	if err := contracts.ValidateEvent(constants.EventTypeNotificationRequested, constants.EventVersionNotificationRequested, body); err != nil {
		adapterLogger.Error("Notification does not match event contract", err, nil)
		return domain.NewValidationError(err.Error(), "notification")
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    record.ID.String(),
		Headers: amqp.Table{
			"event-type":    constants.EventTypeNotificationRequested,
			"event-version": constants.EventVersionNotificationRequested,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish notification", err, nil)
		return domain.NewDispatchError("enqueue", err)
	}

	adapterLogger.Debug("Notification published", nil)
	return nil
}
