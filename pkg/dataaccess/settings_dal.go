package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess/monitoring"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settingsDalName = "settings_dal"

type SettingsDal interface {
	// GetSettings gets the settings document for a guild.
	GetSettings(ctx context.Context, guildID string) (*entities.GuildSettings, error)

	// SaveSettings saves a guild's settings, creating the document when it
	// does not exist.
	SaveSettings(ctx context.Context, settings *entities.GuildSettings) error

	// AllSettings returns the settings documents for every known guild.
	AllSettings(ctx context.Context) ([]*entities.GuildSettings, error)
}

type settingsDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewSettingsDal creates a new guild settings data access layer.
func NewSettingsDal() SettingsDal {
	l := slog.Default().With(slog.String(logging.KeyDal, settingsDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &settingsDalImpl{
		l:      l,
		client: MongoDB,
	}
}

func (d *settingsDalImpl) GetSettings(ctx context.Context, guildID string) (*entities.GuildSettings, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionSettings)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(settingsDalName, "get_settings", mongoDatabase, collectionSettings).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(settingsDalName, "get_settings", mongoDatabase, collectionSettings))
	defer t.ObserveDuration()

	settings := new(entities.GuildSettings)
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID}).Decode(settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting settings: %w", err)
	}
	return settings, nil
}

func (d *settingsDalImpl) SaveSettings(ctx context.Context, settings *entities.GuildSettings) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionSettings)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(settingsDalName, "save_settings", mongoDatabase, collectionSettings).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(settingsDalName, "save_settings", mongoDatabase, collectionSettings))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"guild_id": settings.GuildID}, bson.M{"$set": settings}, opts)
	if err != nil {
		return fmt.Errorf("error updating settings: %w", err)
	}
	return nil
}

func (d *settingsDalImpl) AllSettings(ctx context.Context) ([]*entities.GuildSettings, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionSettings)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(settingsDalName, "all_settings", mongoDatabase, collectionSettings).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(settingsDalName, "all_settings", mongoDatabase, collectionSettings))
	defer t.ObserveDuration()

	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("error listing settings: %w", err)
	}

	var all []*entities.GuildSettings
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	return all, nil
}

// cachedSettingsDal serves reads from a TTL cache and writes through the
// wrapped layer, dropping the cached copy on every write.
type cachedSettingsDal struct {
	inner SettingsDal
	cache *Cache[string, *entities.GuildSettings]
}

// NewCachedSettingsDal wraps a settings layer with a read cache. Settings
// are read on nearly every interaction, so a short TTL takes most of the
// load off Mongo without letting stale data linger.
func NewCachedSettingsDal(inner SettingsDal, ttl time.Duration) SettingsDal {
	return &cachedSettingsDal{
		inner: inner,
		cache: NewCache[string, *entities.GuildSettings](ttl),
	}
}

func (d *cachedSettingsDal) GetSettings(ctx context.Context, guildID string) (*entities.GuildSettings, error) {
	if settings, ok := d.cache.Get(guildID); ok {
		monitoring.SettingsCacheHits.WithLabelValues("hit").Inc()
		return settings, nil
	}
	monitoring.SettingsCacheHits.WithLabelValues("miss").Inc()

	settings, err := d.inner.GetSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	d.cache.Set(guildID, settings)
	return settings, nil
}

func (d *cachedSettingsDal) SaveSettings(ctx context.Context, settings *entities.GuildSettings) error {
	if err := d.inner.SaveSettings(ctx, settings); err != nil {
		return err
	}
	d.cache.Delete(settings.GuildID)
	return nil
}

func (d *cachedSettingsDal) AllSettings(ctx context.Context) ([]*entities.GuildSettings, error) {
	return d.inner.AllSettings(ctx)
}
