package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"healthbot/internal/models"
)

// fakeContextStore is an in-memory ContextStore for tests
type fakeContextStore struct {
	mu              sync.Mutex
	records         map[string]*models.UserRecord
	updates         int
	failGetOrCreate bool
	failUpdate      bool
}

func newFakeContextStore() *fakeContextStore {
	return &fakeContextStore{records: make(map[string]*models.UserRecord)}
}

func (f *fakeContextStore) GetOrCreate(_ context.Context, id string) (*models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetOrCreate {
		return nil, fmt.Errorf("%w: injected failure", ErrStoreUnavailable)
	}
	if record, ok := f.records[id]; ok {
		return record, nil
	}
	now := time.Now()
	record := &models.UserRecord{ID: id, CreatedAt: now, UpdatedAt: now}
	f.records[id] = record
	return record, nil
}

func (f *fakeContextStore) Update(_ context.Context, id string, convContext *models.ConversationContext) (*models.UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return nil, fmt.Errorf("%w: injected failure", ErrStoreUnavailable)
	}
	record, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %q", ErrStoreUnavailable, id)
	}
	record.ConversationContext = convContext
	record.UpdatedAt = time.Now()
	f.updates++
	return record, nil
}

func (f *fakeContextStore) storedContext(id string) *models.ConversationContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		return record.ConversationContext
	}
	return nil
}

// fakeEngine replays scripted responses, echoing the carried context the
// way Watson does (the stored context comes back with the flag down
// unless the script raises it again).
type fakeEngine struct {
	mu        sync.Mutex
	calls     int
	responses []*models.EngineResponse
	err       error
}

func (f *fakeEngine) Send(_ context.Context, _ string, convContext *models.ConversationContext) (*models.EngineResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var resp *models.EngineResponse
	if f.calls < len(f.responses) {
		resp = f.responses[f.calls]
	} else {
		resp = f.responses[len(f.responses)-1]
	}
	f.calls++

	if resp.Context == nil && convContext != nil {
		// Echo the carried context back, as the real engine does.
		echoed := *convContext
		resp = &models.EngineResponse{Output: resp.Output, Entities: resp.Entities, Context: &echoed}
	}
	return resp, nil
}

type recordedTurn struct {
	sessionID string
	turn      models.DialogTurn
}

// fakeDialogLog records sessions and turns, tracking how many
// AddDialogTurn calls overlap so tests can assert the single-flight
// drain invariant.
type fakeDialogLog struct {
	mu          sync.Mutex
	sessions    int
	turns       []recordedTurn
	addDelay    time.Duration
	failAdd     bool
	inFlight    int32
	maxInFlight int32
}

func (f *fakeDialogLog) CreateSession(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return fmt.Sprintf("session-%d", f.sessions), nil
}

func (f *fakeDialogLog) AddDialogTurn(_ context.Context, sessionID string, turn models.DialogTurn) error {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, current) {
			break
		}
	}

	if f.addDelay > 0 {
		time.Sleep(f.addDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return fmt.Errorf("%w: injected failure", ErrLogUnavailable)
	}
	f.turns = append(f.turns, recordedTurn{sessionID: sessionID, turn: turn})
	return nil
}

func (f *fakeDialogLog) recordedTurns() []recordedTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedTurn, len(f.turns))
	copy(out, f.turns)
	return out
}

func waitForIdle(t *testing.T, queue *DialogWriteQueue) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if queue.Idle() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("write queue did not drain in time")
}

func newTestBot(store *fakeContextStore, engine *fakeEngine, dialogLog *fakeDialogLog) (*BotService, *DialogWriteQueue) {
	queue := NewDialogWriteQueue(dialogLog)
	bot := NewBotService(store, engine, dialogLog, NewActionRegistry(), queue)
	return bot, queue
}

func TestProcessMessageEndToEnd(t *testing.T) {
	store := newFakeContextStore()
	engine := &fakeEngine{responses: []*models.EngineResponse{{
		Output:  models.EngineOutput{Text: []string{"Hello!"}},
		Context: &models.ConversationContext{NewConversation: true, Action: "default"},
	}}}
	dialogLog := &fakeDialogLog{}
	bot, queue := newTestBot(store, engine, dialogLog)

	envelope := bot.ProcessMessage(context.Background(), "u1", "hi")

	if envelope.Text != "Hello!" {
		t.Errorf("Reply = %q, want %q", envelope.Text, "Hello!")
	}
	if envelope.WatsonData == nil {
		t.Fatal("Envelope should carry the raw engine response")
	}

	stored := store.storedContext("u1")
	if stored == nil {
		t.Fatal("Context should be persisted")
	}
	if stored.NewConversation {
		t.Error("Fresh-session flag should be flipped false after the session is minted")
	}
	if stored.ConversationDocID != "session-1" {
		t.Errorf("ConversationDocID = %q, want %q", stored.ConversationDocID, "session-1")
	}

	waitForIdle(t, queue)
	turns := dialogLog.recordedTurns()
	if len(turns) != 1 {
		t.Fatalf("Recorded turns = %d, want 1", len(turns))
	}
	if turns[0].sessionID != "session-1" {
		t.Errorf("Turn session = %q, want %q", turns[0].sessionID, "session-1")
	}
	if turns[0].turn.Message != "hi" || turns[0].turn.Reply != "Hello!" {
		t.Errorf("Turn = %+v, want message %q reply %q", turns[0].turn, "hi", "Hello!")
	}
	if turns[0].turn.Action != "default" {
		t.Errorf("Turn action = %q, want %q", turns[0].turn.Action, "default")
	}
}

func TestSessionBoundaryPinning(t *testing.T) {
	store := newFakeContextStore()
	// Turn 1 starts a session, turn 2 echoes the stored context, turn 3
	// raises the flag again.
	engine := &fakeEngine{responses: []*models.EngineResponse{
		{
			Output:  models.EngineOutput{Text: []string{"welcome"}},
			Context: &models.ConversationContext{NewConversation: true},
		},
		{
			Output: models.EngineOutput{Text: []string{"again"}},
		},
		{
			Output:  models.EngineOutput{Text: []string{"fresh"}},
			Context: &models.ConversationContext{NewConversation: true},
		},
	}}
	dialogLog := &fakeDialogLog{}
	bot, queue := newTestBot(store, engine, dialogLog)

	for _, msg := range []string{"one", "two", "three"} {
		bot.ProcessMessage(context.Background(), "u1", msg)
	}
	waitForIdle(t, queue)

	if dialogLog.sessions != 2 {
		t.Fatalf("Sessions created = %d, want 2", dialogLog.sessions)
	}

	turns := dialogLog.recordedTurns()
	if len(turns) != 3 {
		t.Fatalf("Recorded turns = %d, want 3", len(turns))
	}
	wantSessions := []string{"session-1", "session-1", "session-2"}
	for i, want := range wantSessions {
		if turns[i].sessionID != want {
			t.Errorf("Turn %d session = %q, want %q", i, turns[i].sessionID, want)
		}
	}
}

func TestProcessMessageStoreFailureContained(t *testing.T) {
	store := newFakeContextStore()
	store.failGetOrCreate = true
	engine := &fakeEngine{responses: []*models.EngineResponse{{
		Output:  models.EngineOutput{Text: []string{"never"}},
		Context: &models.ConversationContext{NewConversation: true},
	}}}
	dialogLog := &fakeDialogLog{}
	bot, queue := newTestBot(store, engine, dialogLog)

	envelope := bot.ProcessMessage(context.Background(), "u1", "hi")

	if envelope.Text != degradedReply {
		t.Errorf("Reply = %q, want the degraded reply %q", envelope.Text, degradedReply)
	}
	if engine.calls != 0 {
		t.Errorf("Engine calls = %d, want 0", engine.calls)
	}

	waitForIdle(t, queue)
	if turns := dialogLog.recordedTurns(); len(turns) != 0 {
		t.Errorf("Degraded turn must not be logged, got %d turns", len(turns))
	}
}

func TestProcessMessageEngineFailureContained(t *testing.T) {
	store := newFakeContextStore()
	engine := &fakeEngine{err: fmt.Errorf("%w: connection refused", ErrEngineUnavailable)}
	dialogLog := &fakeDialogLog{}
	bot, queue := newTestBot(store, engine, dialogLog)

	envelope := bot.ProcessMessage(context.Background(), "u1", "hi")

	if envelope.Text != degradedReply {
		t.Errorf("Reply = %q, want the degraded reply %q", envelope.Text, degradedReply)
	}
	if store.updates != 0 {
		t.Errorf("Context updates = %d, want 0", store.updates)
	}
	waitForIdle(t, queue)
	if turns := dialogLog.recordedTurns(); len(turns) != 0 {
		t.Errorf("Degraded turn must not be logged, got %d turns", len(turns))
	}
}

func TestProcessMessagePersistFailureContained(t *testing.T) {
	store := newFakeContextStore()
	store.failUpdate = true
	engine := &fakeEngine{responses: []*models.EngineResponse{{
		Output:  models.EngineOutput{Text: []string{"Hello!"}},
		Context: &models.ConversationContext{NewConversation: true},
	}}}
	dialogLog := &fakeDialogLog{}
	bot, queue := newTestBot(store, engine, dialogLog)

	envelope := bot.ProcessMessage(context.Background(), "u1", "hi")

	if envelope.Text != degradedReply {
		t.Errorf("Reply = %q, want the degraded reply %q", envelope.Text, degradedReply)
	}
	// The engine did respond, so the envelope still carries its output.
	if envelope.WatsonData == nil {
		t.Error("Envelope should carry the raw engine response from before the failure")
	}
	waitForIdle(t, queue)
	if turns := dialogLog.recordedTurns(); len(turns) != 0 {
		t.Errorf("Degraded turn must not be logged, got %d turns", len(turns))
	}
}

func TestMissingSessionIDSelfHeals(t *testing.T) {
	store := newFakeContextStore()
	// Flag down with no session reference: a data-consistency fault.
	engine := &fakeEngine{responses: []*models.EngineResponse{{
		Output:  models.EngineOutput{Text: []string{"recovered"}},
		Context: &models.ConversationContext{NewConversation: false},
	}}}
	dialogLog := &fakeDialogLog{}
	bot, queue := newTestBot(store, engine, dialogLog)

	envelope := bot.ProcessMessage(context.Background(), "u1", "hi")

	if envelope.Text != "recovered" {
		t.Errorf("Reply = %q, want %q", envelope.Text, "recovered")
	}
	if dialogLog.sessions != 1 {
		t.Errorf("Sessions created = %d, want 1 (self-heal)", dialogLog.sessions)
	}

	stored := store.storedContext("u1")
	if stored == nil || stored.ConversationDocID != "session-1" {
		t.Errorf("Stored context = %+v, want pinned session-1", stored)
	}
	waitForIdle(t, queue)
}

func TestEmptySenderIDRejected(t *testing.T) {
	store := newFakeContextStore()
	engine := &fakeEngine{responses: []*models.EngineResponse{{
		Context: &models.ConversationContext{NewConversation: true},
	}}}
	dialogLog := &fakeDialogLog{}
	bot, _ := newTestBot(store, engine, dialogLog)

	envelope := bot.ProcessMessage(context.Background(), "", "hi")
	if envelope.Text != degradedReply {
		t.Errorf("Reply = %q, want the degraded reply %q", envelope.Text, degradedReply)
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	store := newFakeContextStore()
	first, err := store.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	second, err := store.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if first != second {
		t.Error("GetOrCreate should return the same record, not create a duplicate")
	}
	if len(store.records) != 1 {
		t.Errorf("Records = %d, want 1", len(store.records))
	}
}
