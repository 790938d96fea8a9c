package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversationSession represents one conversation session stored in the
// conversations collection. A new document is created whenever the
// dialog engine signals a session boundary; all turns of that session
// are appended to Dialogs in arrival order.
type ConversationSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	StartedAt time.Time          `bson:"startedAt" json:"started_at"`
	Dialogs   []DialogTurn       `bson:"dialogs" json:"dialogs"`
}

// DialogTurn is one request/reply exchange. Immutable once created.
type DialogTurn struct {
	Action  string    `bson:"action" json:"action"`
	Message string    `bson:"message" json:"message"`
	Reply   string    `bson:"reply" json:"reply"`
	Date    time.Time `bson:"date" json:"date"`
}

// QueuedWrite is a dialog turn waiting in the write queue to be
// appended to its conversation session.
type QueuedWrite struct {
	SessionID string
	Turn      DialogTurn
}

// ReplyEnvelope is the uniform result of processing one message,
// regardless of the originating transport.
type ReplyEnvelope struct {
	Text       string          `json:"text"`
	WatsonData *EngineResponse `json:"watsonData,omitempty"`
}
