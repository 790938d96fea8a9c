package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"healthbot/internal/database"
	"healthbot/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConversationLog is the append-only log of conversation sessions and
// their dialog turns.
type ConversationLog interface {
	CreateSession(ctx context.Context, userID string) (string, error)
	AddDialogTurn(ctx context.Context, sessionID string, turn models.DialogTurn) error
}

// DialogStore is the MongoDB-backed ConversationLog. Session IDs are
// the hex form of the conversation document's ObjectID.
type DialogStore struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewDialogStore creates a new dialog store
func NewDialogStore(db *database.MongoDB) *DialogStore {
	return &DialogStore{
		db:         db,
		collection: db.Collection(database.CollectionConversations),
	}
}

// CreateSession inserts a new conversation document for the user and
// returns its ID.
func (s *DialogStore) CreateSession(ctx context.Context, userID string) (string, error) {
	session := models.ConversationSession{
		UserID:    userID,
		StartedAt: time.Now(),
		Dialogs:   []models.DialogTurn{},
	}

	result, err := s.collection.InsertOne(ctx, session)
	if err != nil {
		return "", fmt.Errorf("%w: create session for %q: %v", ErrLogUnavailable, userID, err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%w: unexpected inserted ID type %T", ErrLogUnavailable, result.InsertedID)
	}

	log.Printf("🗂️  New conversation session %s for user %s", oid.Hex(), userID)
	return oid.Hex(), nil
}

// AddDialogTurn appends a turn to the session's dialog array.
// Returns ErrSessionNotFound if the session ID is unknown.
func (s *DialogStore) AddDialogTurn(ctx context.Context, sessionID string, turn models.DialogTurn) error {
	oid, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}

	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"dialogs": turn}},
	)
	if err != nil {
		return fmt.Errorf("%w: append turn to %s: %v", ErrLogUnavailable, sessionID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	return nil
}
