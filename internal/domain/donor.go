package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donor представляет собой жертвователя платформы.
// Создается при регистрации как неподтвержденный, подтверждается по email-токену.
type Donor struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	City           string    `json:"city,omitempty"`
	PostalCode     string    `json:"postal_code,omitempty"`
	Verified       bool      `json:"verified"`
	OrganizationID uuid.UUID `json:"organization_id"`
	GHLContactID   string    `json:"ghl_contact_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DonorRequest представляет запрос на регистрацию жертвователя.
type DonorRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	OrganizationID string `json:"organization_id" validate:"required,uuid4"`
}

// DonorUpdateRequest представляет запрос на обновление профиля жертвователя.
type DonorUpdateRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}
