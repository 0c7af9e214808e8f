package usecase

import (
	"context"
	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
)

type EnsureProfileUseCase struct {
	profiles port.ProfileRepositoryPort
}

func NewEnsureProfileUseCase(profiles port.ProfileRepositoryPort) *EnsureProfileUseCase {
	return &EnsureProfileUseCase{profiles: profiles}
}

func (uc *EnsureProfileUseCase) Execute(ctx context.Context, profile domain.Profile) (*domain.Profile, bool, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "EnsureProfile",
		"profile_id": profile.ID.String(),
	})

	if err := profile.Validate(); err != nil {
		return nil, false, err
	}

	stored, created, err := uc.profiles.EnsureProfile(ctx, profile)
	if err != nil {
		ucLogger.Error("Repository failed to ensure profile", err, nil)
		return nil, false, err
	}
	if created {
		ucLogger.Info("Profile created", port.Fields{"role": string(stored.Role)})
	}
	return stored, created, nil
}
