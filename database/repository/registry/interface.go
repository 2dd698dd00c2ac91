// File: database/repository/registry/interface.go
package registryRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"agendabot/database"
	"agendabot/models"
)

type RegistryRepository interface {
	FindByContact(ctx context.Context, contactID string) (*models.Registration, error)
	Upsert(ctx context.Context, reg models.Registration) error
}

type mongoRegistryRepo struct {
	coll *mongo.Collection
}

// NewMongoRegistryRepo constructs a MongoDB-backed RegistryRepository.
func NewMongoRegistryRepo() RegistryRepository {
	return &mongoRegistryRepo{
		coll: database.DB().Collection("registrations"),
	}
}
