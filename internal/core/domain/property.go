package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

// PropertyStatus - статус жизненного цикла объявления
type PropertyStatus string

const (
	StatusDraft               PropertyStatus = "draft"
	StatusPendingVerification PropertyStatus = "pending_verification"
	StatusVerified            PropertyStatus = "verified"
	StatusRejected            PropertyStatus = "rejected"
)

func (s PropertyStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingVerification, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// IsDecided - статус является итогом модерации
func (s PropertyStatus) IsDecided() bool {
	return s == StatusVerified || s == StatusRejected
}

// EditableStatuses - статусы, в которых владелец может менять поля объявления.
// Отклоненное объявление сначала возвращается в черновик через ReturnToDraft.
var EditableStatuses = []PropertyStatus{StatusDraft, StatusPendingVerification}

func (s PropertyStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusPendingVerification
}

// Точность ~153x153 метра
const geohashPrecision = 7

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ComputeGeohash возвращает geohash для координат или пустую строку, если их нет.
func ComputeGeohash(c *Coordinates) string {
	if c == nil {
		return ""
	}
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, geohashPrecision)
}

// ReviewerSnapshot - снимок данных модератора на момент принятия решения
type ReviewerSnapshot struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
}

// Property - основная доменная сущность (объявление)
type Property struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	Price       *float64
	Location    string
	Category    string
	Bedrooms    *int
	Bathrooms   *int
	Area        *float64
	Images      []string
	Documents   []string
	Amenities   []string
	Coordinates *Coordinates
	Geohash     string

	Status    PropertyStatus
	Views     int64
	Inquiries int64

	VerificationNotes string
	VerifiedBy        *ReviewerSnapshot
	VerifiedAt        *time.Time
	RejectionReason   string
	SubmittedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PropertyFields - поля, которые владелец задает при создании.
// Черновик может быть неполным.
type PropertyFields struct {
	Title       string
	Description string
	Price       *float64
	Location    string
	Category    string
	Bedrooms    *int
	Bathrooms   *int
	Area        *float64
	Amenities   []string
	Coordinates *Coordinates
}

// Validate проверяет только то, что не может быть правдой даже для черновика
func (f PropertyFields) Validate() error {
	return validateAttributes(f.Price, f.Bedrooms, f.Bathrooms, f.Area, f.Coordinates)
}

// PropertyPatch - частичное обновление. Поля модерации сюда намеренно не входят:
// их меняют только переходы статуса.
type PropertyPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Location    *string
	Category    *string
	Bedrooms    *int
	Bathrooms   *int
	Area        *float64
	Amenities   *[]string
	Coordinates *Coordinates
}

func (p PropertyPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil && p.Location == nil &&
		p.Category == nil && p.Bedrooms == nil && p.Bathrooms == nil && p.Area == nil &&
		p.Amenities == nil && p.Coordinates == nil
}

func (p PropertyPatch) Validate() error {
	return validateAttributes(p.Price, p.Bedrooms, p.Bathrooms, p.Area, p.Coordinates)
}

func validateAttributes(price *float64, bedrooms, bathrooms *int, area *float64, coords *Coordinates) error {
	var invalid []string
	if price != nil && *price < 0 {
		invalid = append(invalid, "price")
	}
	if bedrooms != nil && *bedrooms < 0 {
		invalid = append(invalid, "bedrooms")
	}
	if bathrooms != nil && *bathrooms < 0 {
		invalid = append(invalid, "bathrooms")
	}
	if area != nil && *area < 0 {
		invalid = append(invalid, "area")
	}
	if coords != nil && (coords.Latitude < -90 || coords.Latitude > 90 || coords.Longitude < -180 || coords.Longitude > 180) {
		invalid = append(invalid, "coordinates")
	}
	if len(invalid) > 0 {
		return NewValidationError("invalid property attributes", invalid...)
	}
	return nil
}

// NewProperty - конструктор черновика
func NewProperty(ownerID uuid.UUID, fields PropertyFields, now time.Time) *Property {
	amenities := fields.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return &Property{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       fields.Title,
		Description: fields.Description,
		Price:       fields.Price,
		Location:    fields.Location,
		Category:    fields.Category,
		Bedrooms:    fields.Bedrooms,
		Bathrooms:   fields.Bathrooms,
		Area:        fields.Area,
		Images:      []string{},
		Documents:   []string{},
		Amenities:   amenities,
		Coordinates: fields.Coordinates,
		Geohash:     ComputeGeohash(fields.Coordinates),
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyPatch сливает патч в объект и обновляет updated_at. Статус не меняется.
func (p *Property) ApplyPatch(patch PropertyPatch, now time.Time) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = patch.Price
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = patch.Bathrooms
	}
	if patch.Area != nil {
		p.Area = patch.Area
	}
	if patch.Amenities != nil {
		p.Amenities = append([]string{}, (*patch.Amenities)...)
	}
	if patch.Coordinates != nil {
		p.Coordinates = patch.Coordinates
		p.Geohash = ComputeGeohash(patch.Coordinates)
	}
	p.UpdatedAt = now
}

// requiredFieldOrder - порядок, в котором перечисляются незаполненные поля
var requiredFieldOrder = []string{"title", "description", "price", "location", "category"}

// MissingRequiredFields возвращает все обязательные для модерации поля, которые не заполнены.
func (p *Property) MissingRequiredFields() []string {
	filled := map[string]bool{
		"title":       p.Title != "",
		"description": p.Description != "",
		"price":       p.Price != nil,
		"location":    p.Location != "",
		"category":    p.Category != "",
	}
	var missing []string
	for _, field := range requiredFieldOrder {
		if !filled[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

// CheckInvariants проверяет согласованность статуса и полей модерации:
// verified_at/verified_by заданы только для verified/rejected,
// rejection_reason непустой только для rejected.
func (p *Property) CheckInvariants() error {
	if !p.Status.IsValid() {
		return NewValidationError("unknown property status", "status")
	}
	var broken []string
	decided := p.Status.IsDecided()
	if (p.VerifiedAt != nil) != decided {
		broken = append(broken, "verified_at")
	}
	if (p.VerifiedBy != nil) != decided {
		broken = append(broken, "verified_by")
	}
	if (p.RejectionReason != "") != (p.Status == StatusRejected) {
		broken = append(broken, "rejection_reason")
	}
	if len(broken) > 0 {
		return NewValidationError("property verification invariant violated", broken...)
	}
	return nil
}

// MediaList возвращает список ссылок для указанного вида медиа
func (p *Property) MediaList(kind MediaKind) []string {
	if kind == MediaDocuments {
		return p.Documents
	}
	return p.Images
}

// HasMedia - принадлежит ли ссылка объекту, и в каком списке она лежит
func (p *Property) HasMedia(url string) (MediaKind, bool) {
	for _, u := range p.Images {
		if u == url {
			return MediaImages, true
		}
	}
	for _, u := range p.Documents {
		if u == url {
			return MediaDocuments, true
		}
	}
	return "", false
}
