package api

import (
	"time"

	"github.com/google/uuid"
)

type ProviderResponse struct {
	Name string `json:"name"`
}

type SlotResponse struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

type CreateReservationRequest struct {
	ProviderID  string `json:"provider_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	CustomerRef string `json:"customer_ref"`
}

type ResolvePaymentRequest struct {
	Outcome string `json:"outcome"`
}

type ReservationResponse struct {
	ID          uuid.UUID `json:"id"`
	ProviderID  uuid.UUID `json:"provider_id"`
	CustomerRef string    `json:"customer_ref"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
