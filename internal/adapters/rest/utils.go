package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errForbidden = errors.New("forbidden")

// WriteJSONError отправляет JSON-ответ с полем "error" и заданным статусом
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// RespondWithJSON отправляет JSON-ответ
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// writeDomainError переводит ошибку use case'а в HTTP-ответ
func writeDomainError(w http.ResponseWriter, logger port.LoggerPort, err error) {
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &validation):
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Message, Fields: validation.Fields})
	case errors.Is(err, domain.ErrPropertyNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrMediaNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		WriteJSONError(w, http.StatusConflict, conflict.Message)
	case errors.Is(err, errForbidden):
		WriteJSONError(w, http.StatusForbidden, "You are not allowed to perform this action")
	case domain.IsGatewayError(err):
		logger.Error("Upstream gateway failed", err, nil)
		WriteJSONError(w, http.StatusBadGateway, "Upstream service is unavailable, try again later")
	default:
		logger.Error("Unhandled error", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func propertyIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "propertyID"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invalid property id", "propertyID")
	}
	return id, nil
}

// queryInt читает целый параметр запроса. Пустой параметр - значение по умолчанию.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError("query parameter must be an integer", name)
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewValidationError("query parameter must be a number", name)
	}
	return &v, nil
}
