package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
)

// Client - минимальный REST-клиент GoHighLevel CRM.
// Используется только для best-effort синхронизации контактов жертвователей:
// любая ошибка здесь логируется вызывающей стороной и не ломает основной флоу.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient создает новый клиент GoHighLevel.
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type upsertContactRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Address1   string `json:"address1,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	LocationID string `json:"locationId,omitempty"`
}

type upsertContactResponse struct {
	Contact struct {
		ID string `json:"id"`
	} `json:"contact"`
}

// UpsertContact создает или обновляет контакт жертвователя в CRM.
// Возвращает внешний ID контакта.
func (c *Client) UpsertContact(ctx context.Context, donor domain.Donor, locationID string) (string, error) {
	payload := upsertContactRequest{
		Email:      donor.Email,
		Name:       donor.Name,
		Phone:      donor.Phone,
		Address1:   donor.Address,
		City:       donor.City,
		PostalCode: donor.PostalCode,
		LocationID: locationID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ghl: failed to marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contacts/upsert", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ghl: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ghl: contact upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ghl: contact upsert returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed upsertContactResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("ghl: failed to decode contact response: %w", err)
	}

	c.log.Debugw("GHL contact upserted", "contactID", parsed.Contact.ID, "email", donor.Email)
	return parsed.Contact.ID, nil
}
