package model

import "time"

// ReservationStatus is the lifecycle state of a credit reservation.
type ReservationStatus string

// Reservation states. Pending is the only non-terminal state.
const (
	ReservationPending   ReservationStatus = "pending"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// Reservation holds credits that were deducted ahead of a classification.
// It is either committed together with a usage record or released back to
// the account.
type Reservation struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Amount    int               `json:"amount"`
	Status    ReservationStatus `json:"status"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	SettledAt *time.Time        `json:"settled_at,omitempty"`
}

// IsPending returns true if the reservation is neither committed nor released.
func (r *Reservation) IsPending() bool {
	return r.Status == ReservationPending
}

// IsExpired returns true if a pending reservation outlived its deadline.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.IsPending() && !now.Before(r.ExpiresAt)
}
