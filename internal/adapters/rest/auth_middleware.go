package rest

import (
	"net/http"
	"strings"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
)

// Заголовки, которые API Gateway выставляет после аутентификации
const (
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
	headerUserName  = "X-User-Name"
	headerUserEmail = "X-User-Email"
)

// IdentityMiddleware читает личность из заголовков шлюза и при первом обращении
// создает профиль. Запрос без X-User-ID проходит дальше как анонимный.
// Роль берется из заголовка: шлюз является источником истины для прав.
func IdentityMiddleware(ensureProfile usecases_port.EnsureProfileUseCasePort) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get(headerUserID)
			if rawID == "" {
				next.ServeHTTP(w, r)
				return
			}

			logger := contextkeys.LoggerFromContext(r.Context())
			userID, err := uuid.Parse(rawID)
			if err != nil {
				WriteJSONError(w, http.StatusUnauthorized, "Invalid X-User-ID header format")
				return
			}

			role := domain.RoleOwner
			if rawRole := r.Header.Get(headerUserRole); rawRole != "" {
				parsed, ok := domain.ParseRole(rawRole)
				if !ok {
					WriteJSONError(w, http.StatusUnauthorized, "Invalid X-User-Role header")
					return
				}
				role = parsed
			}

			stored, created, err := ensureProfile.Execute(r.Context(), domain.Profile{
				ID:          userID,
				DisplayName: strings.TrimSpace(r.Header.Get(headerUserName)),
				Email:       strings.TrimSpace(r.Header.Get(headerUserEmail)),
				Role:        role,
			})
			if err != nil {
				writeDomainError(w, logger, err)
				return
			}
			if created {
				logger.Info("Profile created on first contact", port.Fields{"user_id": userID.String(), "role": string(role)})
			}

			identity := *stored
			identity.Role = role

			ctx := contextkeys.ContextWithIdentity(r.Context(), &identity)
			ctx = contextkeys.ContextWithLogger(ctx, logger.WithFields(port.Fields{"user_id": userID.String()}))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity отклоняет анонимные запросы
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextkeys.IdentityFromContext(r.Context()) == nil {
			WriteJSONError(w, http.StatusUnauthorized, "X-User-ID header is missing")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModerator пропускает только reviewer и admin
func RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := contextkeys.IdentityFromContext(r.Context())
		if identity == nil {
			WriteJSONError(w, http.StatusUnauthorized, "X-User-ID header is missing")
			return
		}
		if !identity.Role.CanModerate() {
			WriteJSONError(w, http.StatusForbidden, "Reviewer or admin role is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorID(r *http.Request) *uuid.UUID {
	if identity := contextkeys.IdentityFromContext(r.Context()); identity != nil {
		id := identity.ID
		return &id
	}
	return nil
}
