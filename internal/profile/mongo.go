package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cyclecoach/internal/config"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// MongoStore keeps profiles in a MongoDB collection keyed by user ID
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects and pings the primary before returning
func NewMongoStore(ctx context.Context, cfg config.ProfileConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Get returns the profile for userID
func (s *MongoStore) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

// Save replaces the whole profile, creating it when missing
func (s *MongoStore) Save(ctx context.Context, p *Profile) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// UpdateTrainingProfile sets only the training snapshot, leaving the rider's
// own fields untouched. A missing profile is created.
func (s *MongoStore) UpdateTrainingProfile(ctx context.Context, userID string, tp TrainingProfile) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"training_profile": tp,
		"updated_at":       now,
	}}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update training profile: %w", err)
	}
	return nil
}

// Close disconnects the client
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// New returns a MongoStore when a URI is configured, otherwise a MemoryStore
func New(ctx context.Context, cfg config.ProfileConfig, logger zerolog.Logger) (Store, error) {
	if cfg.MongoURI == "" {
		logger.Info().Msg("profile store in memory")
		return NewMemoryStore(), nil
	}

	s, err := NewMongoStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("database", cfg.Database).Str("collection", cfg.Collection).Msg("profile store connected")
	return s, nil
}
