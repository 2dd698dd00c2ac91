// File: database/repository/registry/crud.go
package registryRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"agendabot/models"
)

func (r *mongoRegistryRepo) FindByContact(ctx context.Context, contactID string) (*models.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var reg models.Registration
	if err := r.coll.FindOne(ctx, bson.M{"_id": contactID}).Decode(&reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *mongoRegistryRepo) Upsert(ctx context.Context, reg models.Registration) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now()
	}
	filter := bson.M{"_id": reg.ContactID}
	update := bson.M{"$set": reg}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
