package models

import "time"

// UserRecord represents a bot user stored in the users collection.
// The document ID is the stable sender ID from the messaging platform
// (Slack user ID, or the unique ID associated with the WebSocket client).
type UserRecord struct {
	ID                  string               `bson:"_id" json:"id"`
	ConversationContext *ConversationContext `bson:"conversationContext,omitempty" json:"conversation_context,omitempty"`
	CreatedAt           time.Time            `bson:"createdAt" json:"created_at"`
	UpdatedAt           time.Time            `bson:"updatedAt" json:"updated_at"`
}
