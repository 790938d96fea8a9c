package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"healthbot/internal/database"
	"healthbot/internal/models"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ContextStore is the durable mapping from sender ID to user record,
// including the conversation context carried across turns.
type ContextStore interface {
	GetOrCreate(ctx context.Context, id string) (*models.UserRecord, error)
	Update(ctx context.Context, id string, convContext *models.ConversationContext) (*models.UserRecord, error)
}

// UserStore is the MongoDB-backed ContextStore, with a read-through
// in-memory cache so repeat turns from the same sender skip the
// round trip.
type UserStore struct {
	db         *database.MongoDB
	collection *mongo.Collection
	cache      *cache.Cache
}

// NewUserStore creates a new user store
func NewUserStore(db *database.MongoDB) *UserStore {
	return &UserStore{
		db:         db,
		collection: db.Collection(database.CollectionUsers),
		cache:      cache.New(5*time.Minute, 10*time.Minute),
	}
}

// GetOrCreate returns the user record for the given sender ID, creating
// it with an empty context on first sight. The upsert is atomic, so
// concurrent first messages from the same sender cannot produce
// duplicate records.
func (s *UserStore) GetOrCreate(ctx context.Context, id string) (*models.UserRecord, error) {
	if cached, found := s.cache.Get(id); found {
		return cached.(*models.UserRecord), nil
	}

	now := time.Now()
	filter := bson.M{"_id": id}
	update := bson.M{
		"$setOnInsert": bson.M{
			"createdAt": now,
			"updatedAt": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.UserRecord
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: get-or-create %q: %v", ErrStoreUnavailable, id, err)
	}

	if user.CreatedAt.Equal(user.UpdatedAt) && user.ConversationContext == nil {
		log.Printf("👤 Created new user with ID %s", id)
	}

	s.cache.Set(id, &user, cache.DefaultExpiration)
	return &user, nil
}

// Update overwrites the user's conversation context. Last writer wins;
// concurrent turns from the same sender are not serialized.
func (s *UserStore) Update(ctx context.Context, id string, convContext *models.ConversationContext) (*models.UserRecord, error) {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"conversationContext": convContext,
			"updatedAt":           time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.UserRecord
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: update %q: %v", ErrStoreUnavailable, id, err)
	}

	s.cache.Set(id, &user, cache.DefaultExpiration)
	return &user, nil
}
