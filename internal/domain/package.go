package domain

import (
	"time"

	"github.com/google/uuid"
)

// Package представляет собой план регулярных пожертвований.
// Подписка из Stripe ссылается на пакет через metadata["package_id"].
type Package struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Interval    string    `json:"interval"` // month или year
	CreatedAt   time.Time `json:"created_at"`
}

// PackageRequest представляет запрос на создание пакета.
type PackageRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
	Interval    string  `json:"interval" validate:"required,oneof=month year"`
}
