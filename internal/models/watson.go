package models

// EngineRequest is the message payload sent to Watson Conversation.
type EngineRequest struct {
	Input   EngineInput          `json:"input"`
	Context *ConversationContext `json:"context,omitempty"`
}

// EngineInput wraps the user's message text.
type EngineInput struct {
	Text string `json:"text"`
}

// EngineResponse is the structured response from Watson Conversation.
// Output and entities drive reply construction; Context must be stored
// and replayed verbatim on the next turn.
type EngineResponse struct {
	Input    *EngineInput         `json:"input,omitempty"`
	Output   EngineOutput         `json:"output"`
	Intents  []Intent             `json:"intents,omitempty"`
	Entities []Entity             `json:"entities,omitempty"`
	Context  *ConversationContext `json:"context"`
}

// EngineOutput holds the reply lines configured in the dialog workspace.
type EngineOutput struct {
	Text []string `json:"text"`
}

// Intent is a recognized user intent with its confidence score.
type Intent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Entity is a recognized entity, e.g. {entity: "sys-location", value: "Austin"}.
type Entity struct {
	Entity string `json:"entity"`
	Value  string `json:"value"`
}

// Venue is a single result from the location enrichment search.
type Venue struct {
	Name string `json:"name"`
}
