package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Базовые ошибки, которые возвращаются из use case'ов и адаптеров.
// Конкретные типы ниже оборачивают их, поэтому достаточно errors.Is.
var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrMediaNotFound    = errors.New("media url does not belong to property")

	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")

	ErrPersistence = errors.New("persistence gateway error")
	ErrStorage     = errors.New("storage gateway error")
	ErrDispatch    = errors.New("dispatch gateway error")
)

// ValidationError - входные данные не прошли проверку. Fields перечисляет
// все проблемные поля, а не только первое.
type ValidationError struct {
	Fields  []string
	Message string
}

func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: message}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError - не выполнилось условие compare-and-set по статусу.
type ConflictError struct {
	Message  string
	Expected PropertyStatus
	Actual   PropertyStatus
}

func NewStatusConflict(expected, actual PropertyStatus) *ConflictError {
	return &ConflictError{
		Message:  fmt.Sprintf("property status is %q, expected %q", actual, expected),
		Expected: expected,
		Actual:   actual,
	}
}

// NewEditConflict - объявление нельзя редактировать в текущем статусе
func NewEditConflict(actual PropertyStatus) *ConflictError {
	return &ConflictError{
		Message:  fmt.Sprintf("property in status %q cannot be edited", actual),
		Expected: StatusDraft,
		Actual:   actual,
	}
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// GatewayKind - к какому внешнему шлюзу относится ошибка ввода-вывода.
type GatewayKind string

const (
	GatewayPersistence GatewayKind = "persistence"
	GatewayStorage     GatewayKind = "storage"
	GatewayDispatch    GatewayKind = "dispatch"
)

// GatewayError - временная ошибка внешнего шлюза. Только такие ошибки
// имеет смысл повторять.
type GatewayError struct {
	Kind GatewayKind
	Op   string
	Err  error
}

func NewPersistenceError(op string, err error) *GatewayError {
	return &GatewayError{Kind: GatewayPersistence, Op: op, Err: err}
}

func NewStorageError(op string, err error) *GatewayError {
	return &GatewayError{Kind: GatewayStorage, Op: op, Err: err}
}

func NewDispatchError(op string, err error) *GatewayError {
	return &GatewayError{Kind: GatewayDispatch, Op: op, Err: err}
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrPersistence:
		return e.Kind == GatewayPersistence
	case ErrStorage:
		return e.Kind == GatewayStorage
	case ErrDispatch:
		return e.Kind == GatewayDispatch
	}
	return false
}

// IsGatewayError сообщает, что ошибка пришла из шлюза и её можно повторить.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrStorage) || errors.Is(err, ErrDispatch)
}

// SideChannelFailure - сбой в побочном канале (уведомления), который не
// влияет на результат основной операции, но возвращается вызывающему.
type SideChannelFailure struct {
	Channel     string `json:"channel"`
	RecipientID string `json:"recipient_id,omitempty"`
	Error       string `json:"error"`
}
