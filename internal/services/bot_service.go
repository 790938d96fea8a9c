package services

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"healthbot/internal/logging"
	"healthbot/internal/models"
)

// degradedReply is the fixed apology returned whenever any step of turn
// processing fails. Transports never see the underlying error.
const degradedReply = "Sorry, something went wrong!"

// BotService owns one conversational turn end-to-end: resolve the user,
// call the dialog engine, pin the active session, dispatch the action
// handler, persist the updated context, and hand the turn to the write
// queue for background logging.
type BotService struct {
	users   ContextStore
	engine  DialogEngine
	dialogs ConversationLog
	actions *ActionRegistry
	queue   *DialogWriteQueue
}

// NewBotService creates a new bot service
func NewBotService(users ContextStore, engine DialogEngine, dialogs ConversationLog, actions *ActionRegistry, queue *DialogWriteQueue) *BotService {
	return &BotService{
		users:   users,
		engine:  engine,
		dialogs: dialogs,
		actions: actions,
		queue:   queue,
	}
}

// ProcessMessage processes one message from a sender and always returns
// a reply envelope - failures are swallowed at this boundary and
// converted into the degraded reply, with the original error logged for
// operators. Degraded turns are not enqueued for logging.
func (s *BotService) ProcessMessage(ctx context.Context, senderID, message string) *models.ReplyEnvelope {
	start := time.Now()

	reply, raw, err := s.processTurn(ctx, senderID, message)
	if m := GetMetrics(); m != nil {
		m.TurnsProcessed.Inc()
		m.TurnLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		slog.Error("turn processing failed", "sender_id", senderID, "error", err)
		if m := GetMetrics(); m != nil {
			m.DegradedReplies.Inc()
		}
		return &models.ReplyEnvelope{Text: degradedReply, WatsonData: raw}
	}
	return &models.ReplyEnvelope{Text: reply, WatsonData: raw}
}

// processTurn runs the turn pipeline. The raw engine response is
// returned even on failure so the degraded envelope can still carry
// whatever the engine said before things went wrong.
func (s *BotService) processTurn(ctx context.Context, senderID, message string) (string, *models.EngineResponse, error) {
	if senderID == "" {
		return "", nil, fmt.Errorf("empty sender ID")
	}

	// 1. Resolve or create the user record.
	user, err := s.users.GetOrCreate(ctx, senderID)
	if err != nil {
		return "", nil, fmt.Errorf("resolve user: %w", err)
	}

	// 2. Send the message and the carried context to the dialog engine.
	resp, err := s.engine.Send(ctx, message, user.ConversationContext)
	if err != nil {
		return "", nil, fmt.Errorf("dialog engine: %w", err)
	}
	if resp.Context == nil {
		// Engine contract violation; recover by starting fresh.
		resp.Context = &models.ConversationContext{NewConversation: true}
	}

	// 3. Resolve the active conversation session.
	sessionID, err := s.resolveSessionID(ctx, user.ID, resp.Context)
	if err != nil {
		return "", resp, fmt.Errorf("resolve session: %w", err)
	}

	// 4. Dispatch the action handler to build the reply.
	reply := s.actions.Dispatch(ctx, resp)

	// 5. Persist the updated context before returning. Reply
	// correctness depends on this, not on the background log write.
	if _, err := s.users.Update(ctx, user.ID, resp.Context); err != nil {
		return "", resp, fmt.Errorf("persist context: %w", err)
	}

	logging.WithTurn(senderID, sessionID, resp.Context.Action).Debug("turn processed")

	// 6. Queue the turn for background logging. Non-blocking, no
	// backpressure to the caller.
	s.queue.Enqueue(models.QueuedWrite{
		SessionID: sessionID,
		Turn: models.DialogTurn{
			Action:  resp.Context.Action,
			Message: message,
			Reply:   reply,
			Date:    time.Now(),
		},
	})

	return reply, resp, nil
}

// resolveSessionID returns the session the turn belongs to. A new
// session document is minted when the engine raises the fresh-session
// flag; the flag is flipped false and the new ID pinned into the context
// so subsequent turns reuse it. A missing session ID with the flag down
// is a data-consistency fault - self-heal by starting a session rather
// than failing the turn.
func (s *BotService) resolveSessionID(ctx context.Context, userID string, convCtx *models.ConversationContext) (string, error) {
	if !convCtx.NewConversation && convCtx.ConversationDocID != "" {
		return convCtx.ConversationDocID, nil
	}

	if !convCtx.NewConversation {
		log.Printf("⚠️  Missing session ID for user %s with fresh-session flag down, starting a new session", userID)
	}

	sessionID, err := s.dialogs.CreateSession(ctx, userID)
	if err != nil {
		return "", err
	}
	convCtx.NewConversation = false
	convCtx.ConversationDocID = sessionID
	return sessionID, nil
}
