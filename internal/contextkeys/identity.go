package contextkeys

import (
	"context"
	"listing-service/internal/core/domain"
)

type identityKeyType struct{}

var identityKey = identityKeyType{}

// ContextWithIdentity помещает профиль вызывающего пользователя в контекст
func ContextWithIdentity(ctx context.Context, profile *domain.Profile) context.Context {
	return context.WithValue(ctx, identityKey, profile)
}

// IdentityFromContext возвращает профиль пользователя или nil для анонимного запроса
func IdentityFromContext(ctx context.Context) *domain.Profile {
	if profile, ok := ctx.Value(identityKey).(*domain.Profile); ok {
		return profile
	}
	return nil
}
