package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner    Role = "owner"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleReviewer:
		return RoleReviewer, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// CanModerate - может ли роль принимать решения по модерации
func (r Role) CanModerate() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// Profile - учетная запись пользователя, как её видит этот сервис
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	Email       string
	Role        Role
	CreatedAt   time.Time
}

func (p Profile) Snapshot() ReviewerSnapshot {
	return ReviewerSnapshot{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Role:        string(p.Role),
	}
}

func (p Profile) Validate() error {
	var invalid []string
	if p.ID == uuid.Nil {
		invalid = append(invalid, "id")
	}
	if _, ok := ParseRole(string(p.Role)); !ok {
		invalid = append(invalid, "role")
	}
	if len(invalid) > 0 {
		return NewValidationError("invalid profile", invalid...)
	}
	return nil
}
