package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
	"voice-concierge/internal/intelligence"
	"voice-concierge/internal/notify"
)

type fakeDispatcher struct {
	succeed []string
	calls   int
	last    notify.Escalation
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, e notify.Escalation) []string {
	f.calls++
	f.last = e
	return f.succeed
}

type fixture struct {
	engine     *Engine
	turns      *conversation.MemoryStore
	records    *calls.MemoryStore
	gateway    *intelligence.MockGateway
	dispatcher *fakeDispatcher
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		turns:      conversation.NewMemoryStore(),
		records:    calls.NewMemoryStore(),
		gateway:    &intelligence.MockGateway{},
		dispatcher: &fakeDispatcher{},
		now:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(
		f.turns, f.records, f.gateway, f.dispatcher, NewMemoryLocker(),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) classify(imp calls.Importance) {
	f.gateway.ClassifyFunc = func(ctx context.Context, turns []conversation.Turn) (intelligence.Classification, error) {
		return intelligence.Classification{Importance: imp, Topic: "Topic", Summary: "Summary"}, nil
	}
}

// seedTurns loads n prior turns so the event under test sees turn count n+2.
func (f *fixture) seedTurns(t *testing.T, callID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		role := conversation.RoleCaller
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		if err := f.turns.Append(context.Background(), callID, conversation.Turn{Role: role, Content: "turn"}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestGreetingEventCreatesRecordWithoutGateway(t *testing.T) {
	f := newFixture(t)

	d, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", Caller: "+1555"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if d.Action != ActionGather {
		t.Fatalf("expected gather, got %q", d.Action)
	}
	if d.Prompt == "" || d.Reply != "" {
		t.Fatalf("greeting directive should carry a prompt and no reply: %+v", d)
	}
	if f.gateway.ReplyCalls != 0 || f.gateway.ClassifyCalls != 0 {
		t.Fatalf("gateway must not be invoked on greeting")
	}

	rec, err := f.records.Get(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Importance != calls.ImportanceCasual {
		t.Fatalf("expected casual placeholder, got %q", rec.Importance)
	}
	if !rec.NotifiedChannels.Empty() {
		t.Fatalf("expected empty channels, got %v", rec.NotifiedChannels.List())
	}
	if rec.State != calls.StateGreeting {
		t.Fatalf("expected greeting state, got %q", rec.State)
	}
	if !rec.StartedAt.Equal(f.now) {
		t.Fatalf("expected StartedAt %v, got %v", f.now, rec.StartedAt)
	}
}

func TestMissingCallIDRejected(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.HandleEvent(context.Background(), Event{Caller: "+1555"}); !errors.Is(err, ErrMissingCallID) {
		t.Fatalf("expected ErrMissingCallID, got %v", err)
	}
}

func TestSpeechTurnAppendsBothTurnsInOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.ReplyFunc = func(ctx context.Context, turns []conversation.Turn) (intelligence.Reply, error) {
		// The reply must be generated over history plus the caller turn.
		if len(turns) != 1 || turns[0].Role != conversation.RoleCaller {
			t.Fatalf("unexpected reply input: %+v", turns)
		}
		return intelligence.Reply{Text: "How can I help?", Language: "en-US"}, nil
	}
	f.gateway.ClassifyFunc = func(ctx context.Context, turns []conversation.Turn) (intelligence.Classification, error) {
		// Classification runs over the history extended with both new turns.
		if len(turns) != 2 || turns[1].Role != conversation.RoleAssistant {
			t.Fatalf("unexpected classify input: %+v", turns)
		}
		return intelligence.Classification{Importance: calls.ImportanceCasual, Topic: "t", Summary: "s"}, nil
	}

	_, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", Caller: "+1555", SpeechResult: "hello"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	history, _ := f.turns.History(context.Background(), "CA1")
	if len(history) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(history))
	}
	if history[0].Content != "hello" || history[1].Content != "How can I help?" {
		t.Fatalf("unexpected stored turns: %+v", history)
	}
}

func TestEscalationDispatchedOnceForBusinessCall(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceBusiness)
	f.dispatcher.succeed = []string{"slack", "telegram"}

	_, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", Caller: "+1555", SpeechResult: "urgent issue"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.dispatcher.calls != 1 {
		t.Fatalf("expected one dispatch, got %d", f.dispatcher.calls)
	}
	if f.dispatcher.last.Caller != "+1555" || f.dispatcher.last.CallID != "CA1" {
		t.Fatalf("unexpected escalation payload: %+v", f.dispatcher.last)
	}

	rec, _ := f.records.Get(context.Background(), "CA1")
	if !rec.NotifiedChannels.Has("slack") || !rec.NotifiedChannels.Has("telegram") {
		t.Fatalf("expected merged channels, got %v", rec.NotifiedChannels.List())
	}

	// Second eligible turn: channels already recorded, so no new dispatch.
	_, err = f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", Caller: "+1555", SpeechResult: "still urgent"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.dispatcher.calls != 1 {
		t.Fatalf("escalation re-dispatched: %d calls", f.dispatcher.calls)
	}
}

func TestNoEscalationForCasualOrSpam(t *testing.T) {
	for _, imp := range []calls.Importance{calls.ImportanceCasual, calls.ImportanceSpam} {
		f := newFixture(t)
		f.classify(imp)
		_, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "hi"})
		if err != nil {
			t.Fatalf("handle(%s): %v", imp, err)
		}
		if f.dispatcher.calls != 0 {
			t.Fatalf("dispatcher invoked for %s", imp)
		}
	}
}

func TestFailedDispatchKeepsCallEligible(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceCritical)
	f.dispatcher.succeed = nil // every channel failed

	_, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "emergency"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if !rec.NotifiedChannels.Empty() {
		t.Fatalf("failed dispatch must leave channels empty, got %v", rec.NotifiedChannels.List())
	}

	// Still eligible: a later turn may retry.
	f.dispatcher.succeed = []string{"slack"}
	_, err = f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "still an emergency"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.dispatcher.calls != 2 {
		t.Fatalf("expected retry dispatch, got %d calls", f.dispatcher.calls)
	}
	rec, _ = f.records.Get(context.Background(), "CA1")
	if !rec.NotifiedChannels.Has("slack") {
		t.Fatalf("expected slack recorded after retry")
	}
}

func TestCasualCallContinuesBelowTurnLimit(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceCasual)
	f.seedTurns(t, "CA1", 2) // this exchange makes 4 turns

	d, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "just chatting"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if d.Action != ActionGather {
		t.Fatalf("casual at 4 turns must continue, got %q", d.Action)
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if rec.Terminated() {
		t.Fatalf("record finalized prematurely")
	}
}

func TestCasualCallTerminatesAtTurnLimit(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceCasual)
	f.seedTurns(t, "CA1", 4) // this exchange makes 6 turns

	d, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "anyway"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if d.Action != ActionHangup {
		t.Fatalf("casual at 6 turns must hang up, got %q", d.Action)
	}
	if d.Closing == "" {
		t.Fatalf("hangup directive must carry the closing line")
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if rec.EndedAt == nil || !rec.EndedAt.Equal(f.now) {
		t.Fatalf("expected EndedAt %v, got %v", f.now, rec.EndedAt)
	}
	if rec.State != calls.StateTerminated {
		t.Fatalf("expected terminated state, got %q", rec.State)
	}
}

func TestBusinessCallContinuesAtTurnLimit(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceBusiness)
	f.seedTurns(t, "CA1", 4)

	d, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "one more thing"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if d.Action != ActionGather {
		t.Fatalf("business at 6 turns must continue, got %q", d.Action)
	}
}

func TestSpamTerminatesImmediately(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceSpam)

	d, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "win a free cruise"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if d.Action != ActionHangup {
		t.Fatalf("spam must hang up, got %q", d.Action)
	}
}

func TestProviderCompletedStatusTerminates(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceBusiness)

	d, err := f.engine.HandleEvent(context.Background(), Event{
		CallID: "CA1", SpeechResult: "bye", CallStatus: "completed", CallDuration: "85",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if d.Action != ActionHangup {
		t.Fatalf("completed status must hang up, got %q", d.Action)
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 85 {
		t.Fatalf("expected duration 85, got %v", rec.DurationSeconds)
	}
}

func TestDurationUnsetWithoutProviderFigure(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceSpam)

	_, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "spammy"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if rec.EndedAt == nil {
		t.Fatalf("expected EndedAt on termination")
	}
	if rec.DurationSeconds != nil {
		t.Fatalf("duration must stay unset without a provider figure, got %v", *rec.DurationSeconds)
	}
}

func TestTerminationNotRewrittenOnRedelivery(t *testing.T) {
	f := newFixture(t)
	f.classify(calls.ImportanceSpam)

	first := f.now
	if _, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "spam"}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// Redelivery a minute later must not move the finalized timestamps.
	f.now = f.now.Add(time.Minute)
	if _, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "spam"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if !rec.EndedAt.Equal(first) {
		t.Fatalf("EndedAt moved on redelivery: %v", rec.EndedAt)
	}
}

func TestGatewayFailurePropagatesOnCallPath(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("model unavailable")
	f.gateway.ReplyFunc = func(ctx context.Context, turns []conversation.Turn) (intelligence.Reply, error) {
		return intelligence.Reply{}, boom
	}

	_, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1", SpeechResult: "hello"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected gateway error to propagate, got %v", err)
	}
}

func TestCallerDefaultsToUnknown(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.HandleEvent(context.Background(), Event{CallID: "CA1"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	rec, _ := f.records.Get(context.Background(), "CA1")
	if rec.Caller != "Unknown" {
		t.Fatalf("expected Unknown caller, got %q", rec.Caller)
	}
}
