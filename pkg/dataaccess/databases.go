package dataaccess

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB is the Mongo client. This is a connection pool.
var MongoDB *mongo.Client

const (
	mongoDatabase = "lostland"

	collectionTickets  = "tickets"
	collectionUsers    = "users"
	collectionSettings = "guild_settings"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a save lost a concurrent update
	// race. The caller re-reads and retries or gives up.
	ErrVersionConflict = errors.New("version conflict")
)
