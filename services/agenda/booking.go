// File: services/agenda/booking.go
package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	agendaRepo "agendabot/database/repository/agenda"
	"agendabot/models"
	"agendabot/utils"
)

// Book claims a slot for a contact. The claim is a single conditional write
// on the AVAILABLE row, so two concurrent requests for the same slot resolve
// to exactly one winner; the loser gets ErrSlotConflict.
func (s *DefaultAgendaService) Book(ctx context.Context, req BookRequest) (*models.Slot, error) {
	logger := utils.GetLogger()

	at := req.At.In(s.Cfg.Location())
	if !at.After(s.Clock.Now()) {
		return nil, ErrSlotConflict
	}
	date, startTime := models.SlotKey(at)

	err := s.Repo.TransitionToBooked(ctx, date, startTime, req.PatientName, req.ContactID, req.Origin, req.Notes)
	if err == nil {
		s.invalidateListings(ctx)
		logger.Info("slot booked",
			zap.String("date", date),
			zap.String("startTime", startTime),
			zap.String("contactId", req.ContactID))
		booked := models.NewSlotAt(at)
		booked.Status = models.SlotBooked
		booked.PatientName = req.PatientName
		booked.ContactID = req.ContactID
		booked.Origin = req.Origin
		booked.Notes = req.Notes
		return &booked, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to book slot: %w", err)
	}

	// No AVAILABLE row matched. Either the slot was taken, or the instant
	// lies outside the materialized horizon.
	existing, getErr := s.Repo.Get(ctx, date, startTime)
	if getErr == nil && existing != nil {
		return nil, ErrSlotConflict
	}
	if getErr != nil && !errors.Is(getErr, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to book slot: %w", getErr)
	}

	maxStart, maxErr := s.Repo.MaxStart(ctx)
	if maxErr != nil {
		return nil, fmt.Errorf("failed to book slot: %w", maxErr)
	}
	if !at.After(maxStart) {
		return nil, ErrSlotNotFound
	}

	// Beyond the horizon the row does not exist yet; insert it born booked.
	booked := models.NewSlotAt(at)
	booked.Status = models.SlotBooked
	booked.PatientName = req.PatientName
	booked.ContactID = req.ContactID
	booked.Origin = req.Origin
	booked.Notes = req.Notes
	if err := s.Repo.InsertBooked(ctx, booked); err != nil {
		if errors.Is(err, agendaRepo.ErrDuplicateSlot) {
			return nil, ErrSlotConflict
		}
		return nil, fmt.Errorf("failed to book slot: %w", err)
	}
	logger.Info("slot booked beyond horizon",
		zap.String("date", date),
		zap.String("startTime", startTime),
		zap.String("contactId", req.ContactID))
	return &booked, nil
}

// Cancel releases a booking owned by contactID and returns the booking as it
// stood, so callers can clean up reminders and notify the owner.
func (s *DefaultAgendaService) Cancel(ctx context.Context, contactID string, at time.Time) (*models.Slot, error) {
	logger := utils.GetLogger()

	at = at.In(s.Cfg.Location())
	date, startTime := models.SlotKey(at)

	prior, err := s.Repo.ReleaseIfBooked(ctx, date, startTime, contactID)
	if err == nil {
		s.invalidateListings(ctx)
		logger.Info("booking cancelled",
			zap.String("date", date),
			zap.String("startTime", startTime),
			zap.String("contactId", contactID))
		return prior, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	existing, getErr := s.Repo.Get(ctx, date, startTime)
	if getErr != nil {
		if errors.Is(getErr, mongo.ErrNoDocuments) {
			return nil, ErrNothingToCancel
		}
		return nil, fmt.Errorf("failed to cancel booking: %w", getErr)
	}
	if existing.Status == models.SlotBooked && existing.ContactID != contactID {
		return nil, ErrNotSlotOwner
	}
	return nil, ErrNothingToCancel
}

// NextBookingFor returns the contact's soonest future booking.
func (s *DefaultAgendaService) NextBookingFor(ctx context.Context, contactID string) (*models.Slot, error) {
	slots, err := s.Repo.ListBookedByContact(ctx, contactID, s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to look up bookings: %w", err)
	}
	if len(slots) == 0 {
		return nil, ErrNoUpcoming
	}
	return &slots[0], nil
}

// CancelNextBookingFor cancels the contact's soonest future booking.
func (s *DefaultAgendaService) CancelNextBookingFor(ctx context.Context, contactID string) (*models.Slot, error) {
	next, err := s.NextBookingFor(ctx, contactID)
	if err != nil {
		if errors.Is(err, ErrNoUpcoming) {
			return nil, ErrNothingToCancel
		}
		return nil, err
	}
	at, err := next.Instant(s.Cfg.Location())
	if err != nil {
		return nil, err
	}
	return s.Cancel(ctx, contactID, at)
}

// BookingsFor lists the contact's future bookings, soonest first.
func (s *DefaultAgendaService) BookingsFor(ctx context.Context, contactID string) ([]models.Slot, error) {
	return s.Repo.ListBookedByContact(ctx, contactID, s.Clock.Now())
}

// BookingsOn lists every booking of a calendar day, used by the owner's
// daily summary.
func (s *DefaultAgendaService) BookingsOn(ctx context.Context, day time.Time) ([]models.Slot, error) {
	day = day.In(s.Cfg.Location())
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.Repo.ListBookedInRange(ctx, start, start.AddDate(0, 0, 1))
}
