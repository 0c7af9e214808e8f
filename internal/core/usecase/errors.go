package usecase

import (
	"errors"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrPropertyNotFound) ||
		errors.Is(err, domain.ErrProfileNotFound) ||
		errors.Is(err, domain.ErrMediaNotFound)
}

// logTransitionError: конфликт статуса и отсутствие объекта - ожидаемые исходы, не ошибки сервиса
func logTransitionError(logger port.LoggerPort, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		logger.Warn("Status transition rejected", port.Fields{"expected": string(conflict.Expected), "actual": string(conflict.Actual)})
	case isNotFound(err):
		logger.Warn("Property not found", nil)
	default:
		logger.Error("Repository failed to transition status", err, nil)
	}
}

func sideChannelFailure(channel, recipient string, err error) domain.SideChannelFailure {
	return domain.SideChannelFailure{Channel: channel, RecipientID: recipient, Error: err.Error()}
}
