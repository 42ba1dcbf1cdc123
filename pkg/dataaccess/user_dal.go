package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess/monitoring"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userDalName = "user_dal"

type UserDal interface {
	// GetUser gets a user by their Discord ID.
	GetUser(ctx context.Context, discordID string) (*entities.User, error)

	// SaveUser saves a user, creating the record when it does not exist.
	SaveUser(ctx context.Context, user *entities.User) error
}

type userDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewUserDal creates a new user data access layer.
func NewUserDal() UserDal {
	l := slog.Default().With(slog.String(logging.KeyDal, userDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &userDalImpl{
		l:      l,
		client: MongoDB,
	}
}

func (d *userDalImpl) GetUser(ctx context.Context, discordID string) (*entities.User, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionUsers)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(userDalName, "get_user", mongoDatabase, collectionUsers).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(userDalName, "get_user", mongoDatabase, collectionUsers))
	defer t.ObserveDuration()

	user := new(entities.User)
	err := collection.FindOne(ctx, bson.M{"discord_id": discordID}).Decode(user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

func (d *userDalImpl) SaveUser(ctx context.Context, user *entities.User) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionUsers)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(userDalName, "save_user", mongoDatabase, collectionUsers).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(userDalName, "save_user", mongoDatabase, collectionUsers))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"discord_id": user.DiscordID}, bson.M{"$set": user}, opts)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}
