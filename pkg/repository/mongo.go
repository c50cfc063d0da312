package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shipmesh/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// AuditEntry is one choreography step: a webhook receipt, a shipment status
// change, a payment trigger.
type AuditEntry struct {
	ID        string    `bson:"_id,omitempty"`
	Service   string    `bson:"service"`
	Action    string    `bson:"action"`
	EntityID  string    `bson:"entity_id"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

// AuditLog records choreography steps. Writes are best-effort.
type AuditLog interface {
	Record(ctx context.Context, entry *AuditEntry)
	List(ctx context.Context, entityID string, limit int64) ([]*AuditEntry, error)
}

type MongoAuditLog struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewMongoAuditLog(cfg *config.MongoDBConfig, logger *zap.Logger) (*MongoAuditLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &MongoAuditLog{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.Named("audit"),
	}, nil
}

func (m *MongoAuditLog) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoAuditLog) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoAuditLog) Record(ctx context.Context, entry *AuditEntry) {
	entry.CreatedAt = time.Now().UTC()
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		m.logger.Warn("Failed to write audit entry",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

// List returns the newest entries for entityID; an empty entityID lists all.
func (m *MongoAuditLog) List(ctx context.Context, entityID string, limit int64) ([]*AuditEntry, error) {
	filter := bson.M{}
	if entityID != "" {
		filter["entity_id"] = entityID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*AuditEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit log: %w", err)
	}
	return entries, nil
}

// NopAuditLog is used when no MongoDB URI is configured.
type NopAuditLog struct{}

func (NopAuditLog) Record(context.Context, *AuditEntry) {}

func (NopAuditLog) List(context.Context, string, int64) ([]*AuditEntry, error) {
	return nil, nil
}
