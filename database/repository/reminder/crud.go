// File: database/repository/reminder/crud.go
package reminderRepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agendabot/models"
)

func (r *mongoReminderRepo) Create(ctx context.Context, job models.ReminderJob) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, job)
	return err
}

// ListPending returns every job that has not fired yet, soonest first. Used to
// re-arm timers after a restart.
func (r *mongoReminderRepo) ListPending(ctx context.Context) ([]models.ReminderJob, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"sentAt": nil}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []models.ReminderJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ClaimPending atomically removes a pending job and hands it to the caller.
// Returns mongo.ErrNoDocuments when the job was already claimed or cancelled,
// which is how a fired timer learns it should stay silent.
func (r *mongoReminderRepo) ClaimPending(ctx context.Context, id string) (*models.ReminderJob, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": id, "sentAt": nil}
	var job models.ReminderJob
	if err := r.coll.FindOneAndDelete(ctx, filter).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// RemovePending deletes every unfired job tied to a contact's appointment,
// used when the appointment is cancelled or moved.
func (r *mongoReminderRepo) RemovePending(ctx context.Context, contactID string, appointmentAt time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"contactId":     contactID,
		"appointmentAt": appointmentAt,
		"sentAt":        nil,
	}
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
