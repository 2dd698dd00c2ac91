// File: database/repository/agenda/interface.go
package agendaRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"agendabot/database"
	"agendabot/models"
)

// ErrDuplicateSlot is returned when an insert collides with an existing
// (date, startTime) row.
var ErrDuplicateSlot = errors.New("agenda: slot already exists")

type AgendaRepository interface {
	EnsureIndexes(ctx context.Context) error
	InsertMissing(ctx context.Context, slots []models.Slot) (int, error)
	Get(ctx context.Context, date, startTime string) (*models.Slot, error)
	ListAvailableInRange(ctx context.Context, from, to time.Time) ([]models.Slot, error)
	ListBookedByContact(ctx context.Context, contactID string, after time.Time) ([]models.Slot, error)
	ListBookedInRange(ctx context.Context, from, to time.Time) ([]models.Slot, error)
	TransitionToBooked(ctx context.Context, date, startTime, patientName, contactID, origin, notes string) error
	InsertBooked(ctx context.Context, slot models.Slot) error
	ReleaseIfBooked(ctx context.Context, date, startTime, contactID string) (*models.Slot, error)
	MarkDayOff(ctx context.Context, date string) (int64, error)
	MaxStart(ctx context.Context) (time.Time, error)
}

type mongoAgendaRepo struct {
	coll *mongo.Collection
}

// NewMongoAgendaRepo constructs a MongoDB-backed AgendaRepository.
func NewMongoAgendaRepo() AgendaRepository {
	return &mongoAgendaRepo{
		coll: database.DB().Collection("slots"),
	}
}
