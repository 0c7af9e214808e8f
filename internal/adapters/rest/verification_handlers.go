package rest

import (
	"encoding/json"
	"net/http"

	"listing-service/internal/contextkeys"
	"listing-service/internal/core/domain"
	"listing-service/internal/core/port"
	"listing-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
)

type VerificationHandler struct {
	decideUC  usecases_port.DecideVerificationUseCasePort
	pendingUC usecases_port.ListPendingVerificationsUseCasePort
	historyUC usecases_port.GetVerificationHistoryUseCasePort
	guard     ownerGuard
}

func NewVerificationHandler(
	decideUC usecases_port.DecideVerificationUseCasePort,
	pendingUC usecases_port.ListPendingVerificationsUseCasePort,
	historyUC usecases_port.GetVerificationHistoryUseCasePort,
	getUC usecases_port.GetPropertyUseCasePort,
) *VerificationHandler {
	return &VerificationHandler{
		decideUC:  decideUC,
		pendingUC: pendingUC,
		historyUC: historyUC,
		guard:     ownerGuard{getUC: getUC},
	}
}

// Decide обрабатывает POST /api/v1/properties/{propertyID}/decision
func (h *VerificationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "Decide"})
	reviewer := contextkeys.IdentityFromContext(r.Context())

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Failed to decode request body", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.decideUC.Execute(r.Context(), propertyID, domain.DecisionInput{
		Decision:        domain.Decision(req.Decision),
		Notes:           req.Notes,
		RejectionReason: req.RejectionReason,
		Reviewer:        reviewer.Snapshot(),
	})
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, DecisionResponse{
		Property: toPropertyResponse(result.Property),
		History:  result.History,
		Warnings: result.SideChannelErrs,
	})
}

// ListPending обрабатывает GET /api/v1/verifications/pending
func (h *VerificationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListPending"})

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", domain.DefaultPageSize)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	filters := domain.PendingFilters{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			writeDomainError(w, logger, domain.NewValidationError("invalid owner id", "owner_id"))
			return
		}
		filters.OwnerID = &ownerID
	}
	if filters.PriceMin, err = queryFloat(r, "price_min"); err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if filters.PriceMax, err = queryFloat(r, "price_max"); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	result, err := h.pendingUC.Execute(r.Context(), page, pageSize, filters)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	resp := PendingPageResponse{
		Items:      make([]PropertyResponse, len(result.Items)),
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}
	for i := range result.Items {
		resp.Items[i] = toPropertyResponse(&result.Items[i])
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

// History обрабатывает GET /api/v1/properties/{propertyID}/history
func (h *VerificationHandler) History(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "History"})

	propertyID, err := propertyIDParam(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if _, err := h.guard.authorize(r.Context(), propertyID, true); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	entries, err := h.historyUC.Execute(r.Context(), propertyID)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if entries == nil {
		entries = []domain.VerificationHistoryEntry{}
	}
	RespondWithJSON(w, http.StatusOK, HistoryResponse{PropertyID: propertyID, Entries: entries})
}
