package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
)

type PropertyHandler struct {
	createUC  usecases_port.CreatePropertyUseCasePort
	getUC     usecases_port.GetPropertyUseCasePort
	updateUC  usecases_port.UpdatePropertyUseCasePort
	submitUC  usecases_port.SubmitForVerificationUseCasePort
	toDraftUC usecases_port.ReturnToDraftUseCasePort

	maxUploadBytes int64
}

func NewPropertyHandler(
	createUC usecases_port.CreatePropertyUseCasePort,
	getUC usecases_port.GetPropertyUseCasePort,
	updateUC usecases_port.UpdatePropertyUseCasePort,
	submitUC usecases_port.SubmitForVerificationUseCasePort,
	toDraftUC usecases_port.ReturnToDraftUseCasePort,
	maxUploadBytes int64,
) *PropertyHandler {
	return &PropertyHandler{
		createUC:       createUC,
		getUC:          getUC,
		updateUC:       updateUC,
		submitUC:       submitUC,
		toDraftUC:      toDraftUC,
		maxUploadBytes: maxUploadBytes,
	}
}

// ownerGuard загружает объявление и проверяет, что вызывающий - его владелец (или admin)
type ownerGuard struct {
	getUC usecases_port.GetPropertyUseCasePort
}

func (g ownerGuard) authorize(ctx context.Context, propertyID uuid.UUID, allowModerators bool) (*domain.Property, error) {
	identity := contextkeys.IdentityFromContext(ctx)
	if identity == nil {
		return nil, errForbidden
	}
	property, err := g.getUC.Execute(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if property.OwnerID == identity.ID || identity.Role == domain.RoleAdmin {
		return property, nil
	}
	if allowModerators && identity.Role.CanModerate() {
		return property, nil
	}
	return nil, errForbidden
}

// CreateProperty обрабатывает POST /api/v1/properties.
// Принимает JSON или multipart-форму: поле "property" с JSON и файлы "images".
func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "CreateProperty"})
	identity := contextkeys.IdentityFromContext(r.Context())

	var req CreatePropertyRequest
	var files []domain.MediaFile

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			logger.Warn("Failed to parse multipart form", port.Fields{"error": err.Error()})
			WriteJSONError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		if raw := r.FormValue("property"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req); err != nil {
				WriteJSONError(w, http.StatusBadRequest, "Invalid property JSON in form field 'property'")
				return
			}
		}
		var err error
		files, err = readMultipartFiles(r.MultipartForm, "images")
		if err != nil {
			logger.Warn("Failed to read uploaded images", port.Fields{"error": err.Error()})
			WriteJSONError(w, http.StatusBadRequest, "Could not read uploaded files")
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	property, err := h.createUC.Execute(r.Context(), identity.ID, req.toDomain(), files)
	var batch *domain.MediaBatchError
	switch {
	case err == nil:
		RespondWithJSON(w, http.StatusCreated, CreatePropertyResponse{Property: toPropertyResponse(property)})
	case errors.As(err, &batch) && property != nil:
		logger.Warn("Property created with partial media failures", port.Fields{"failed": len(batch.Failures)})
		RespondWithJSON(w, http.StatusMultiStatus, CreatePropertyResponse{
			Property:      toPropertyResponse(property),
			MediaFailures: batch.Failures,
		})
	case property != nil:
		// объявление уже создано, но прикрепить фото не удалось
		logger.Error("Property created but media attach failed", err, nil)
		RespondWithJSON(w, http.StatusMultiStatus, CreatePropertyResponse{
			Property:      toPropertyResponse(property),
			MediaFailures: []domain.MediaFailure{{Name: "*", Error: err.Error()}},
		})
	default:
		writeDomainError(w, logger, err)
	}
}

// GetProperty обрабатывает GET /api/v1/properties/{propertyID}.
// Непроверенные объявления видны только владельцу и модераторам.
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetProperty"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	property, err := h.getUC.Execute(r.Context(), propertyID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	if property.Status != domain.StatusVerified {
		identity := contextkeys.IdentityFromContext(r.Context())
		if identity == nil || (identity.ID != property.OwnerID && !identity.Role.CanModerate()) {
			writeDomainError(w, logger, domain.ErrPropertyNotFound)
			return
		}
	}

	RespondWithJSON(w, http.StatusOK, toPropertyResponse(property))
}

// UpdateProperty обрабатывает PATCH /api/v1/properties/{propertyID}
func (h *PropertyHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "UpdateProperty"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if _, err := (ownerGuard{h.getUC}).authorize(r.Context(), propertyID, false); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Could not read request body")
		return
	}
	req, err := decodeUpdateRequest(body)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeDomainError(w, logger, err)
			return
		}
		logger.Warn("Failed to decode request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	property, err := h.updateUC.Execute(r.Context(), propertyID, req.toDomain())
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPropertyResponse(property))
}

// SubmitProperty обрабатывает POST /api/v1/properties/{propertyID}/submit
func (h *PropertyHandler) SubmitProperty(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SubmitProperty"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if _, err := (ownerGuard{h.getUC}).authorize(r.Context(), propertyID, false); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	result, err := h.submitUC.Execute(r.Context(), propertyID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, SubmitResponse{
		Property:          toPropertyResponse(result.Property),
		NotifiedReviewers: result.NotifiedReviewers,
		Warnings:          result.SideChannelErrs,
	})
}

// ReturnToDraft обрабатывает POST /api/v1/properties/{propertyID}/draft
func (h *PropertyHandler) ReturnToDraft(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ReturnToDraft"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if _, err := (ownerGuard{h.getUC}).authorize(r.Context(), propertyID, false); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	property, err := h.toDraftUC.Execute(r.Context(), propertyID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPropertyResponse(property))
}
