package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"
)

type DispatchNotificationUseCasePort interface {
	Execute(ctx context.Context, record domain.NotificationRecord) error
}
