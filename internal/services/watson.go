package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"healthbot/internal/models"
)

// DialogEngine is the stateless request/response collaborator that,
// given a message and the carried context, returns the reply lines,
// recognized entities, and the new context to store.
type DialogEngine interface {
	Send(ctx context.Context, message string, convContext *models.ConversationContext) (*models.EngineResponse, error)
}

// WatsonClient calls the Watson Conversation v1 message API.
type WatsonClient struct {
	httpClient  *http.Client
	baseURL     string
	username    string
	password    string
	workspaceID string
	version     string
}

// WatsonConfig holds the Watson Conversation credentials and workspace
type WatsonConfig struct {
	URL         string
	Username    string
	Password    string
	WorkspaceID string
	Version     string
	Timeout     time.Duration
}

// NewWatsonClient creates a new Watson Conversation client
func NewWatsonClient(cfg WatsonConfig) *WatsonClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WatsonClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.URL,
		username:    cfg.Username,
		password:    cfg.Password,
		workspaceID: cfg.WorkspaceID,
		version:     cfg.Version,
	}
}

// Send posts the user's message and the carried context to the message
// endpoint. Transport errors and timeouts map to ErrEngineUnavailable;
// non-2xx responses become an EngineError carrying the upstream body.
func (c *WatsonClient) Send(ctx context.Context, message string, convContext *models.ConversationContext) (*models.EngineResponse, error) {
	payload := models.EngineRequest{
		Input:   models.EngineInput{Text: message},
		Context: convContext,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize engine request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/workspaces/%s/message?version=%s",
		c.baseURL, c.workspaceID, url.QueryEscape(c.version))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrEngineUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &EngineError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var engineResp models.EngineResponse
	if err := json.Unmarshal(respBody, &engineResp); err != nil {
		return nil, fmt.Errorf("failed to parse engine response: %w", err)
	}
	return &engineResp, nil
}
