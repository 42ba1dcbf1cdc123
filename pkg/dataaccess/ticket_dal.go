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

const ticketDalName = "ticket_dal"

type TicketDal interface {
	// CreateTicket inserts a new ticket.
	CreateTicket(ctx context.Context, ticket *entities.Ticket) error

	// SaveTicket saves an existing ticket. It fails with ErrVersionConflict
	// when the stored ticket has moved on since this copy was read.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetTicketByID gets a ticket by its identifier.
	GetTicketByID(ctx context.Context, id string) (*entities.Ticket, error)

	// GetTicketByChannel gets the ticket bound to a channel.
	GetTicketByChannel(ctx context.Context, guildID string, channelID string) (*entities.Ticket, error)

	// NextTicketIndex returns the sequence index for the next ticket under
	// one (guild, panel, action) counter. Indexes start at 1.
	NextTicketIndex(ctx context.Context, guildID string, panelID string, actionID string) (int, error)
}

type ticketDalImpl struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal() TicketDal {
	l := slog.Default().With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDalImpl{
		l:      l,
		client: MongoDB,
	}
}

func (d *ticketDalImpl) CreateTicket(ctx context.Context, ticket *entities.Ticket) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "create_ticket", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "create_ticket", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	_, err := collection.InsertOne(ctx, ticket)
	if err != nil {
		return fmt.Errorf("error inserting ticket: %w", err)
	}
	return nil
}

func (d *ticketDalImpl) SaveTicket(ctx context.Context, ticket *entities.Ticket) error {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	// The filter matches the version this copy was read at, so two staff
	// acting on the same ticket at once cannot both win.
	prev := ticket.Version
	ticket.Version = prev + 1

	res, err := collection.UpdateOne(ctx,
		bson.M{"id": ticket.ID, "version": prev},
		bson.M{"$set": ticket},
	)
	if err != nil {
		ticket.Version = prev
		return fmt.Errorf("error updating ticket: %w", err)
	}
	if res.MatchedCount == 0 {
		ticket.Version = prev
		return fmt.Errorf("ticket %s at version %d: %w", ticket.ID, prev, ErrVersionConflict)
	}
	return nil
}

func (d *ticketDalImpl) GetTicketByID(ctx context.Context, id string) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_id", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_ticket_by_id", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{"id": id}).Decode(ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDalImpl) GetTicketByChannel(ctx context.Context, guildID string, channelID string) (*entities.Ticket, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_channel", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_ticket_by_channel", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Decode(ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDalImpl) NextTicketIndex(ctx context.Context, guildID string, panelID string, actionID string) (int, error) {
	collection := d.client.Database(mongoDatabase).Collection(collectionTickets)

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "next_ticket_index", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "next_ticket_index", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	// The sequence is derived from the highest index issued under the
	// counter, closed tickets included, so it only ever climbs.
	opts := options.FindOne()
	opts.SetSort(bson.M{"index": -1})

	ticket := new(entities.Ticket)
	err := collection.FindOne(ctx, bson.M{
		"guild_id":  guildID,
		"panel_id":  panelID,
		"action_id": actionID,
	}, opts).Decode(ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 1, nil
		}
		return 0, fmt.Errorf("error getting latest ticket: %w", err)
	}
	return ticket.Index + 1, nil
}
