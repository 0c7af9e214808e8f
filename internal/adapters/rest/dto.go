package rest

import (
	"encoding/json"
	"time"

	"listing-service/internal/core/domain"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type CoordinatesDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c *CoordinatesDTO) toDomain() *domain.Coordinates {
	if c == nil {
		return nil
	}
	return &domain.Coordinates{Latitude: c.Latitude, Longitude: c.Longitude}
}

// CreatePropertyRequest - тело POST /properties (или поле "property" multipart-формы)
type CreatePropertyRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       *float64        `json:"price"`
	Location    string          `json:"location"`
	Category    string          `json:"category"`
	Bedrooms    *int            `json:"bedrooms"`
	Bathrooms   *int            `json:"bathrooms"`
	Area        *float64        `json:"area"`
	Amenities   []string        `json:"amenities"`
	Coordinates *CoordinatesDTO `json:"coordinates"`
}

func (r CreatePropertyRequest) toDomain() domain.PropertyFields {
	return domain.PropertyFields{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		Category:    r.Category,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		Area:        r.Area,
		Amenities:   r.Amenities,
		Coordinates: r.Coordinates.toDomain(),
	}
}

// UpdatePropertyRequest - частичное обновление, отсутствующие поля не меняются
type UpdatePropertyRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Price       *float64        `json:"price"`
	Location    *string         `json:"location"`
	Category    *string         `json:"category"`
	Bedrooms    *int            `json:"bedrooms"`
	Bathrooms   *int            `json:"bathrooms"`
	Area        *float64        `json:"area"`
	Amenities   *[]string       `json:"amenities"`
	Coordinates *CoordinatesDTO `json:"coordinates"`
}

// поля, которые меняются только через модерацию и счетчики
var readOnlyPropertyFields = []string{
	"id", "owner_id", "status", "verified_by", "verified_at", "rejection_reason",
	"verification_notes", "submitted_at", "views", "inquiries", "images", "documents",
}

// decodeUpdateRequest разбирает тело PATCH и отклоняет попытку записать служебные поля
func decodeUpdateRequest(body []byte) (UpdatePropertyRequest, error) {
	var req UpdatePropertyRequest
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return req, err
	}

	var forbidden []string
	for _, field := range readOnlyPropertyFields {
		if _, ok := raw[field]; ok {
			forbidden = append(forbidden, field)
		}
	}
	if len(forbidden) > 0 {
		return req, domain.NewValidationError("these fields cannot be changed by an update", forbidden...)
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

func (r UpdatePropertyRequest) toDomain() domain.PropertyPatch {
	return domain.PropertyPatch{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		Category:    r.Category,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		Area:        r.Area,
		Amenities:   r.Amenities,
		Coordinates: r.Coordinates.toDomain(),
	}
}

type PropertyResponse struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       *float64        `json:"price"`
	Location    string          `json:"location"`
	Category    string          `json:"category"`
	Bedrooms    *int            `json:"bedrooms"`
	Bathrooms   *int            `json:"bathrooms"`
	Area        *float64        `json:"area"`
	Images      []string        `json:"images"`
	Documents   []string        `json:"documents"`
	Amenities   []string        `json:"amenities"`
	Coordinates *CoordinatesDTO `json:"coordinates,omitempty"`
	Geohash     string          `json:"geohash,omitempty"`

	Status    string `json:"status"`
	Views     int64  `json:"views"`
	Inquiries int64  `json:"inquiries"`

	VerificationNotes string                   `json:"verification_notes,omitempty"`
	VerifiedBy        *domain.ReviewerSnapshot `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time               `json:"verified_at,omitempty"`
	RejectionReason   string                   `json:"rejection_reason,omitempty"`
	SubmittedAt       *time.Time               `json:"submitted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPropertyResponse(p *domain.Property) PropertyResponse {
	resp := PropertyResponse{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Title:             p.Title,
		Description:       p.Description,
		Price:             p.Price,
		Location:          p.Location,
		Category:          p.Category,
		Bedrooms:          p.Bedrooms,
		Bathrooms:         p.Bathrooms,
		Area:              p.Area,
		Images:            nonNil(p.Images),
		Documents:         nonNil(p.Documents),
		Amenities:         nonNil(p.Amenities),
		Geohash:           p.Geohash,
		Status:            string(p.Status),
		Views:             p.Views,
		Inquiries:         p.Inquiries,
		VerificationNotes: p.VerificationNotes,
		VerifiedBy:        p.VerifiedBy,
		VerifiedAt:        p.VerifiedAt,
		RejectionReason:   p.RejectionReason,
		SubmittedAt:       p.SubmittedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.Coordinates != nil {
		resp.Coordinates = &CoordinatesDTO{Latitude: p.Coordinates.Latitude, Longitude: p.Coordinates.Longitude}
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CreatePropertyResponse: при частичном сбое загрузки фото объявление
// все равно создано, а неудачные файлы перечислены в media_failures
type CreatePropertyResponse struct {
	Property      PropertyResponse      `json:"property"`
	MediaFailures []domain.MediaFailure `json:"media_failures,omitempty"`
}

type SubmitResponse struct {
	Property          PropertyResponse            `json:"property"`
	NotifiedReviewers int                         `json:"notified_reviewers"`
	Warnings          []domain.SideChannelFailure `json:"warnings,omitempty"`
}

type DecisionRequest struct {
	Decision        string `json:"decision"`
	Notes           string `json:"notes"`
	RejectionReason string `json:"rejection_reason"`
}

type DecisionResponse struct {
	Property PropertyResponse                `json:"property"`
	History  domain.VerificationHistoryEntry `json:"history"`
	Warnings []domain.SideChannelFailure     `json:"warnings,omitempty"`
}

type PendingPageResponse struct {
	Items      []PropertyResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

type HistoryResponse struct {
	PropertyID uuid.UUID                         `json:"property_id"`
	Entries    []domain.VerificationHistoryEntry `json:"entries"`
}

type MediaResponse struct {
	Kind     string                `json:"kind"`
	URLs     []string              `json:"urls"`
	Failures []domain.MediaFailure `json:"failures,omitempty"`
}

type InquiryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type InquiryResponse struct {
	Recorded bool                        `json:"recorded"`
	Warnings []domain.SideChannelFailure `json:"warnings,omitempty"`
}
