package database

import (
	"context"
	"log"
	"time"

	"agendabot/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient is the global MongoDB client instance.
var MongoClient *mongo.Client

// Name resolves the database name from config, defaulting to "agendabot".
func Name() string {
	if config.AppConfig.MongoDB != "" {
		return config.AppConfig.MongoDB
	}
	return "agendabot"
}

// DB returns a handle to the configured database.
func DB() *mongo.Database {
	return MongoClient.Database(Name())
}

// InitDB initializes the MongoDB connection.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(config.AppConfig.DatabaseURL)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}
	MongoClient = client
	log.Println("Connected to MongoDB successfully!")
}
