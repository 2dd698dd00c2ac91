// File: database/repository/agenda/crud.go
package agendaRepo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agendabot/models"
)

// EnsureIndexes creates the unique (date, startTime) identity index plus the
// startAt index backing range scans.
func (r *mongoAgendaRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "startTime", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "startAt", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "contactId", Value: 1}, {Key: "startAt", Value: 1}},
		},
	})
	return err
}

// InsertMissing inserts slots that do not exist yet and leaves existing rows
// untouched, so manual edits and day-off markings survive regeneration.
// Returns the number of rows actually inserted.
func (r *mongoAgendaRepo) InsertMissing(ctx context.Context, slots []models.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs := make([]interface{}, len(slots))
	for i, slot := range slots {
		docs[i] = slot
	}

	res, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil {
		// Unordered inserts report duplicates as a bulk write error while
		// still inserting the rest.
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && allDuplicates(bwe) {
			return inserted, nil
		}
		if mongo.IsDuplicateKeyError(err) {
			return inserted, nil
		}
		return inserted, err
	}
	return inserted, nil
}

func (r *mongoAgendaRepo) Get(ctx context.Context, date, startTime string) (*models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"date": date, "startTime": startTime}
	var slot models.Slot
	if err := r.coll.FindOne(ctx, filter).Decode(&slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *mongoAgendaRepo) ListAvailableInRange(ctx context.Context, from, to time.Time) ([]models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":  models.SlotAvailable,
		"startAt": bson.M{"$gte": from, "$lt": to},
	}
	return r.list(ctx, filter)
}

func (r *mongoAgendaRepo) ListBookedByContact(ctx context.Context, contactID string, after time.Time) ([]models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":    models.SlotBooked,
		"contactId": contactID,
		"startAt":   bson.M{"$gte": after},
	}
	return r.list(ctx, filter)
}

func (r *mongoAgendaRepo) ListBookedInRange(ctx context.Context, from, to time.Time) ([]models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"status":  models.SlotBooked,
		"startAt": bson.M{"$gte": from, "$lt": to},
	}
	return r.list(ctx, filter)
}

func (r *mongoAgendaRepo) list(ctx context.Context, filter bson.M) ([]models.Slot, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "startAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// TransitionToBooked flips an AVAILABLE row to BOOKED in a single conditional
// update. Returns mongo.ErrNoDocuments when the row is missing or no longer
// available; callers decide which of the two it was.
func (r *mongoAgendaRepo) TransitionToBooked(ctx context.Context, date, startTime, patientName, contactID, origin, notes string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"date": date, "startTime": startTime, "status": models.SlotAvailable}
	update := bson.M{"$set": bson.M{
		"status":      models.SlotBooked,
		"patientName": patientName,
		"contactId":   contactID,
		"origin":      origin,
		"notes":       notes,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// InsertBooked inserts a row that is born BOOKED, used for appointments past
// the generated horizon. A concurrent insert of the same identity surfaces as
// ErrDuplicateSlot.
func (r *mongoAgendaRepo) InsertBooked(ctx context.Context, slot models.Slot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slot.Status = models.SlotBooked
	if _, err := r.coll.InsertOne(ctx, slot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlot
		}
		return err
	}
	return nil
}

// ReleaseIfBooked flips a BOOKED row owned by contactID back to AVAILABLE and
// returns the row as it was before the release. An empty contactID skips the
// ownership filter.
func (r *mongoAgendaRepo) ReleaseIfBooked(ctx context.Context, date, startTime, contactID string) (*models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"date": date, "startTime": startTime, "status": models.SlotBooked}
	if contactID != "" {
		filter["contactId"] = contactID
	}
	update := bson.M{
		"$set":   bson.M{"status": models.SlotAvailable},
		"$unset": bson.M{"patientName": "", "contactId": "", "origin": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prior models.Slot
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prior); err != nil {
		return nil, err
	}
	return &prior, nil
}

// MarkDayOff blocks every still-available slot of the given date.
func (r *mongoAgendaRepo) MarkDayOff(ctx context.Context, date string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"date": date, "status": models.SlotAvailable}
	update := bson.M{"$set": bson.M{"status": models.SlotDayOff}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MaxStart reports the latest slot start currently in the agenda. Returns the
// zero time when the agenda is empty.
func (r *mongoAgendaRepo) MaxStart(ctx context.Context) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "startAt", Value: -1}})
	var slot models.Slot
	err := r.coll.FindOne(ctx, bson.M{}, opts).Decode(&slot)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return slot.StartAt, nil
}

func allDuplicates(bwe mongo.BulkWriteException) bool {
	if len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
