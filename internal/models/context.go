package models

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson"
)

// ConversationContext is the conversation state returned by the dialog
// engine and replayed verbatim on the next turn. The bot reads and
// rewrites exactly three fields; everything else the engine attaches is
// carried opaquely in Extra and round-tripped untouched.
type ConversationContext struct {
	// NewConversation is set by the dialog engine when a new session
	// starts. The bot flips it false after minting a conversation doc.
	NewConversation bool

	// Action is the tag the engine attaches to select a reply handler.
	Action string

	// ConversationDocID references the active conversation doc in the
	// dialog log. Pinned on session start, reused until the engine
	// signals a new session.
	ConversationDocID string

	// Extra holds all other engine-owned context fields.
	Extra map[string]interface{}
}

type contextCoreFields struct {
	NewConversation   bool   `json:"newConversation"`
	Action            string `json:"action,omitempty"`
	ConversationDocID string `json:"conversationDocId,omitempty"`
}

// MarshalJSON flattens the three core fields and the opaque Extra map
// into a single object, so the engine sees the context exactly as it
// shaped it.
func (c ConversationContext) MarshalJSON() ([]byte, error) {
	merged := make(map[string]interface{}, len(c.Extra)+3)
	for k, v := range c.Extra {
		merged[k] = v
	}
	merged["newConversation"] = c.NewConversation
	if c.Action != "" {
		merged["action"] = c.Action
	}
	if c.ConversationDocID != "" {
		merged["conversationDocId"] = c.ConversationDocID
	}
	return json.Marshal(merged)
}

// UnmarshalJSON picks out the three core fields and stashes everything
// else in Extra.
func (c *ConversationContext) UnmarshalJSON(data []byte) error {
	var core contextCoreFields
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "newConversation")
	delete(raw, "action")
	delete(raw, "conversationDocId")

	c.NewConversation = core.NewConversation
	c.Action = core.Action
	c.ConversationDocID = core.ConversationDocID
	if len(raw) > 0 {
		c.Extra = raw
	} else {
		c.Extra = nil
	}
	return nil
}

// bsonContext mirrors ConversationContext for document storage. Kept
// separate so the BSON shape does not depend on the custom JSON codec.
type bsonContext struct {
	NewConversation   bool                   `bson:"newConversation"`
	Action            string                 `bson:"action,omitempty"`
	ConversationDocID string                 `bson:"conversationDocId,omitempty"`
	Extra             map[string]interface{} `bson:"extra,omitempty"`
}

// MarshalBSON stores the context with the core fields typed and the
// engine extras under a single subdocument.
func (c ConversationContext) MarshalBSON() ([]byte, error) {
	return bson.Marshal(bsonContext{
		NewConversation:   c.NewConversation,
		Action:            c.Action,
		ConversationDocID: c.ConversationDocID,
		Extra:             c.Extra,
	})
}

// UnmarshalBSON restores a context stored by MarshalBSON.
func (c *ConversationContext) UnmarshalBSON(data []byte) error {
	var doc bsonContext
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	c.NewConversation = doc.NewConversation
	c.Action = doc.Action
	c.ConversationDocID = doc.ConversationDocID
	c.Extra = doc.Extra
	return nil
}
