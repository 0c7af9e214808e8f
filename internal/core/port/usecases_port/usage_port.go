package usecases_port

import (
	"context"
	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type RecordViewUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID, actorID *uuid.UUID) error
}

type RecordInquiryUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID, actorID *uuid.UUID, payload domain.InquiryPayload) ([]domain.SideChannelFailure, error)
}

type GetPropertyAnalyticsUseCasePort interface {
	Execute(ctx context.Context, propertyID uuid.UUID, window domain.AnalyticsWindow) (*domain.AnalyticsSummary, error)
}
