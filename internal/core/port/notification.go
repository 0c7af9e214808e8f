package port

import (
	"context"
	"listing-service/internal/core/domain"
)

// NotificationQueuePort - очередь намерений уведомить. Use case'ы только
// ставят запись в очередь, доставку выполняет цикл диспетчеризации.
type NotificationQueuePort interface {
	Enqueue(ctx context.Context, record domain.NotificationRecord) error
}

// NotificationDispatcherPort - канал доставки (входящие пользователя).
// Повторная отправка записи с тем же ID не создает дубликат.
type NotificationDispatcherPort interface {
	Send(ctx context.Context, record domain.NotificationRecord) error
}

// DispatchMetricsPort считает результаты доставки.
type DispatchMetricsPort interface {
	NotificationDispatched(notificationType string, success bool)
}
