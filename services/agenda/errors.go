// File: services/agenda/errors.go
package agenda

import "errors"

var (
	// ErrSlotConflict means the requested slot exists but is not available,
	// either already booked or blocked as a day off.
	ErrSlotConflict = errors.New("slot is no longer available")

	// ErrSlotNotFound means no agenda row exists for the requested instant.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrNotSlotOwner means the slot is booked by a different contact.
	ErrNotSlotOwner = errors.New("slot belongs to another contact")

	// ErrNothingToCancel means the contact has no matching booking.
	ErrNothingToCancel = errors.New("no booking to cancel")

	// ErrNoUpcoming means the contact has no future bookings.
	ErrNoUpcoming = errors.New("no upcoming booking")

	// ErrStoreUnavailable means the agenda store could not be reached and no
	// cached fallback existed.
	ErrStoreUnavailable = errors.New("agenda store unavailable")
)
