package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"time"

	"github.com/google/uuid"
)

const (
	channelReviewers = "reviewer_directory"
	channelNotify    = "notification_queue"
)

type SubmitForVerificationUseCase struct {
	repo     port.PropertyRepositoryPort
	profiles port.ProfileRepositoryPort
	queue    port.NotificationQueuePort
	retry    RetryPolicy
	now      func() time.Time
}

func NewSubmitForVerificationUseCase(
	repo port.PropertyRepositoryPort,
	profiles port.ProfileRepositoryPort,
	queue port.NotificationQueuePort,
	retry RetryPolicy,
) *SubmitForVerificationUseCase {
	return &SubmitForVerificationUseCase{
		repo:     repo,
		profiles: profiles,
		queue:    queue,
		retry:    retry,
		now:      utcNow,
	}
}

func (uc *SubmitForVerificationUseCase) Execute(ctx context.Context, propertyID uuid.UUID) (*domain.SubmissionResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "SubmitForVerification",
		"property_id": propertyID.String(),
	})

	ucLogger.Info("Use case started", nil)

	property, err := findProperty(ctx, uc.repo, uc.retry, ucLogger, propertyID)
	if err != nil {
		return nil, err
	}
	if property.Status != domain.StatusDraft {
		ucLogger.Warn("Property is not a draft", port.Fields{"status": string(property.Status)})
		return nil, domain.NewStatusConflict(domain.StatusDraft, property.Status)
	}
	if missing := property.MissingRequiredFields(); len(missing) > 0 {
		ucLogger.Warn("Property is incomplete", port.Fields{"missing": missing})
		return nil, domain.NewValidationError("required fields are missing", missing...)
	}

	// Между чтением и записью статус мог измениться: условная запись это увидит
	updated, err := uc.repo.TransitionStatus(ctx, propertyID, domain.NewSubmitTransition(uc.now()))
	if err != nil {
		logTransitionError(ucLogger, err)
		return nil, err
	}

	result := &domain.SubmissionResult{Property: updated}
	result.NotifiedReviewers, result.SideChannelErrs = uc.notifyReviewers(ctx, updated, ucLogger)

	ucLogger.Info("Use case finished successfully", port.Fields{
		"notified_reviewers": result.NotifiedReviewers,
		"side_channel_errs":  len(result.SideChannelErrs),
	})
	return result, nil
}

// notifyReviewers ставит в очередь по одному уведомлению на модератора.
// Сбой одного получателя не мешает остальным.
func (uc *SubmitForVerificationUseCase) notifyReviewers(ctx context.Context, property *domain.Property, logger port.LoggerPort) (int, []domain.SideChannelFailure) {
	reviewers, err := withRetry(ctx, uc.retry, logger, "profile_repository.find_by_role", func() ([]domain.Profile, error) {
		return uc.profiles.FindByRole(ctx, domain.RoleReviewer)
	})
	if err != nil {
		logger.Error("Could not load reviewers, nobody will be notified", err, nil)
		return 0, []domain.SideChannelFailure{sideChannelFailure(channelReviewers, "", err)}
	}
	if len(reviewers) == 0 {
		logger.Warn("No reviewers registered", nil)
		return 0, nil
	}

	var failures []domain.SideChannelFailure
	notified := 0
	for _, reviewer := range reviewers {
		record := domain.NewSubmissionNotification(reviewer.ID, property, uc.now())
		err := withRetryErr(ctx, uc.retry, logger, "notification_queue.enqueue", func() error {
			return uc.queue.Enqueue(ctx, record)
		})
		if err != nil {
			logger.Error("Failed to enqueue reviewer notification", err, port.Fields{"reviewer_id": reviewer.ID.String()})
			failures = append(failures, sideChannelFailure(channelNotify, reviewer.ID.String(), err))
			continue
		}
		notified++
	}
	return notified, failures
}
