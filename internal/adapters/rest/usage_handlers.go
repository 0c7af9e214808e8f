package rest

import (
	"encoding/json"
	"net/http"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"
)

type UsageHandler struct {
	viewUC      usecases_port.RecordViewUseCasePort
	inquiryUC   usecases_port.RecordInquiryUseCasePort
	analyticsUC usecases_port.GetPropertyAnalyticsUseCasePort
	guard       ownerGuard
}

func NewUsageHandler(
	viewUC usecases_port.RecordViewUseCasePort,
	inquiryUC usecases_port.RecordInquiryUseCasePort,
	analyticsUC usecases_port.GetPropertyAnalyticsUseCasePort,
	getUC usecases_port.GetPropertyUseCasePort,
) *UsageHandler {
	return &UsageHandler{
		viewUC:      viewUC,
		inquiryUC:   inquiryUC,
		analyticsUC: analyticsUC,
		guard:       ownerGuard{getUC: getUC},
	}
}

// RecordView обрабатывает POST /api/v1/properties/{propertyID}/views
func (h *UsageHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "RecordView"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if err := h.viewUC.Execute(r.Context(), propertyID, actorID(r)); err != nil {
		writeDomainError(w, logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordInquiry обрабатывает POST /api/v1/properties/{propertyID}/inquiries
func (h *UsageHandler) RecordInquiry(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "RecordInquiry"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	var req InquiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	warnings, err := h.inquiryUC.Execute(r.Context(), propertyID, actorID(r), domain.InquiryPayload{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, InquiryResponse{Recorded: true, Warnings: warnings})
}

// Analytics обрабатывает GET /api/v1/properties/{propertyID}/analytics?window=day|week|month
func (h *UsageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "Analytics"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	window, err := domain.ParseAnalyticsWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if _, err := h.guard.authorize(r.Context(), propertyID, true); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	summary, err := h.analyticsUC.Execute(r.Context(), propertyID, window)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, summary)
}
