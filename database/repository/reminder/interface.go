// File: database/repository/reminder/interface.go
package reminderRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"agendabot/database"
	"agendabot/models"
)

type ReminderRepository interface {
	Create(ctx context.Context, job models.ReminderJob) error
	ListPending(ctx context.Context) ([]models.ReminderJob, error)
	ClaimPending(ctx context.Context, id string) (*models.ReminderJob, error)
	RemovePending(ctx context.Context, contactID string, appointmentAt time.Time) (int64, error)
}

type mongoReminderRepo struct {
	coll *mongo.Collection
}

// NewMongoReminderRepo constructs a MongoDB-backed ReminderRepository.
func NewMongoReminderRepo() ReminderRepository {
	return &mongoReminderRepo{
		coll: database.DB().Collection("reminders"),
	}
}
