package booking

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	// StatusHeld is the state of a freshly created reservation waiting
	// for payment. A held reservation occupies its slot.
	StatusHeld ReservationStatus = "held"
	// StatusConfirmed is the terminal success state. Confirmed
	// reservations occupy their slot permanently.
	StatusConfirmed ReservationStatus = "confirmed"
	// StatusExpired marks a failed payment. The row keeps blocking the
	// slot until the sweeper removes it.
	StatusExpired ReservationStatus = "expired"
)

// Window is one recurring weekly availability window of a provider.
// DayOfWeek follows time.Weekday numbering (0 = Sunday). Start and end
// are wall-clock "HH:MM" strings; at most one window per day.
type Window struct {
	DayOfWeek int
	StartTime string
	EndTime   string
}

type Provider struct {
	ID      uuid.UUID
	Name    string
	Windows []Window
}

type Reservation struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	CustomerRef string
	Date        string // "2006-01-02"
	Time        string // "3:04 PM", as emitted by the availability calculator
	Status      ReservationStatus
	CreatedAt   time.Time
}

// Slot is a candidate bookable interval. Slots are derived on every
// availability query and never persisted.
type Slot struct {
	ProviderID uuid.UUID
	Date       string
	Time       string
}

// SlotKey identifies the (date, time) pair of a slot within one
// provider, used for exclusion-set lookups.
type SlotKey struct {
	Date string
	Time string
}

func (r *Reservation) Key() SlotKey {
	return SlotKey{Date: r.Date, Time: r.Time}
}
