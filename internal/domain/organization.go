package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization представляет собой организацию-получателя пожертвований.
// Balance хранится в основных единицах валюты и увеличивается ТОЛЬКО
// обработчиками успешных платежей в вебхуке.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Balance   float64   `json:"balance"`
	GHLID     string    `json:"ghl_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OrganizationRequest представляет запрос на создание организации.
type OrganizationRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	GHLID string `json:"ghl_id"`
}
