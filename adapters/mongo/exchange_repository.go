package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const exchangesCollection = "exchanges"

// ExchangeRepository implements repositories.ExchangeRepository using MongoDB
type ExchangeRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.ExchangeRepository = (*ExchangeRepository)(nil)

// NewExchangeRepository creates a new MongoDB exchange repository
func NewExchangeRepository(db *mongo.Database, logger *zap.Logger) *ExchangeRepository {
	return &ExchangeRepository{
		collection: db.Collection(exchangesCollection),
		logger:     logger,
	}
}

// EnsureIndexes creates the index backing ListRecent
func (r *ExchangeRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create exchange indexes: %w", err)
	}

	r.logger.Info("Exchange indexes created")
	return nil
}

// Create implements repositories.ExchangeRepository
func (r *ExchangeRepository) Create(ctx context.Context, exchange *entities.Exchange) error {
	if exchange == nil {
		return errors.New("exchange cannot be nil")
	}

	if err := exchange.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, exchange); err != nil {
		return fmt.Errorf("failed to create exchange: %w", err)
	}

	return nil
}

// ListRecent implements repositories.ExchangeRepository
func (r *ExchangeRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Exchange, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find exchanges: %w", err)
	}
	defer cursor.Close(ctx)

	exchanges := make([]*entities.Exchange, 0, limit)
	if err := cursor.All(ctx, &exchanges); err != nil {
		return nil, fmt.Errorf("failed to decode exchanges: %w", err)
	}

	return exchanges, nil
}
