package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"voice-concierge/internal/audit"
	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
	"voice-concierge/internal/intelligence"
	"voice-concierge/internal/notify"
)

var ErrMissingCallID = errors.New("orchestrator: call id required")

// Event is one inbound telephony webhook delivery, already authenticated.
type Event struct {
	CallID       string
	Caller       string
	CallStatus   string
	SpeechResult string
	CallDuration string
}

// durationSeconds parses the provider-supplied call duration, if any.
func (e Event) durationSeconds() (int, bool) {
	if e.CallDuration == "" {
		return 0, false
	}
	n, err := strconv.Atoi(e.CallDuration)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Action is what the telephony response should instruct the provider to do.
type Action string

const (
	// ActionGather speaks the queued lines, then listens for the next utterance.
	ActionGather Action = "gather"
	// ActionHangup speaks the queued lines, then ends the call.
	ActionHangup Action = "hangup"
)

// Directive describes the markup response for one event.
type Directive struct {
	Action Action

	// Reply is the assistant's generated line; empty on the greeting turn.
	Reply string
	// Prompt is the spoken gather prompt (greeting or re-listen line).
	Prompt string
	// Closing is the goodbye line spoken before hangup.
	Closing string
	// PauseSeconds inserts a pause between Reply and the gather.
	PauseSeconds int
}

// Prompts are the fixed spoken lines of the assistant.
type Prompts struct {
	Greeting  string
	Listening string
	Closing   string
}

func DefaultPrompts() Prompts {
	return Prompts{
		Greeting:  "Hello, this is the virtual assistant. How may I help you today?",
		Listening: "I'm listening.",
		Closing:   "Thank you for reaching out. Have a peaceful day ahead.",
	}
}

// Dispatcher reports which channels accepted an escalation.
type Dispatcher interface {
	Dispatch(ctx context.Context, e notify.Escalation) []string
}

// terminate when a casual conversation has run this many turns.
const casualHangupTurns = 6

const (
	awaitingTopic   = "Awaiting caller input"
	awaitingSummary = "Call initiated, awaiting summary"
)

// Engine drives the per-event turn/classify/escalate/terminate decision.
//
// Failure policy: downstream errors on the call path propagate to the caller
// (the provider redelivers); only the simulation path degrades gracefully.
type Engine struct {
	turns    conversation.Store
	records  calls.Store
	gateway  intelligence.Gateway
	notifier Dispatcher
	locks    Locker
	trail    *audit.Service

	prompts Prompts
	now     func() time.Time
	log     *slog.Logger
}

type EngineOption func(*Engine)

func WithPrompts(p Prompts) EngineOption {
	return func(e *Engine) { e.prompts = p }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithAuditTrail(trail *audit.Service) EngineOption {
	return func(e *Engine) { e.trail = trail }
}

func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func NewEngine(
	turns conversation.Store,
	records calls.Store,
	gateway intelligence.Gateway,
	notifier Dispatcher,
	locks Locker,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		turns:    turns,
		records:  records,
		gateway:  gateway,
		notifier: notifier,
		locks:    locks,
		prompts:  DefaultPrompts(),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleEvent consumes one webhook event and returns the response directive.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) (Directive, error) {
	if ev.CallID == "" {
		return Directive{}, ErrMissingCallID
	}
	caller := ev.Caller
	if caller == "" {
		caller = "Unknown"
	}

	release, err := e.locks.Acquire(ctx, ev.CallID)
	if err != nil {
		return Directive{}, err
	}
	defer release()

	if ev.SpeechResult == "" {
		return e.greet(ctx, ev.CallID, caller)
	}
	return e.converse(ctx, ev, caller)
}

// greet handles the first event of a call: no speech yet, so create the
// awaiting-input record and prompt the caller. The intelligence gateway is
// never consulted here.
func (e *Engine) greet(ctx context.Context, callID, caller string) (Directive, error) {
	now := e.now().UTC()
	_, err := e.records.Upsert(ctx, calls.Record{
		CallID:           callID,
		Caller:           caller,
		Topic:            awaitingTopic,
		Summary:          awaitingSummary,
		Importance:       calls.ImportanceCasual,
		State:            calls.StateGreeting,
		StartedAt:        now,
		NotifiedChannels: calls.NewChannelSet(),
		UpdatedAt:        now,
	})
	if err != nil {
		return Directive{}, err
	}
	return Directive{Action: ActionGather, Prompt: e.prompts.Greeting}, nil
}

// converse runs the full turn pipeline: append caller turn, generate reply,
// append assistant turn, classify, escalate, decide termination, persist.
func (e *Engine) converse(ctx context.Context, ev Event, caller string) (Directive, error) {
	now := e.now().UTC()

	history, err := e.turns.History(ctx, ev.CallID)
	if err != nil {
		return Directive{}, err
	}

	callerTurn := conversation.Turn{Role: conversation.RoleCaller, Content: ev.SpeechResult}
	if err := e.turns.Append(ctx, ev.CallID, callerTurn); err != nil {
		return Directive{}, err
	}
	extended := append(slices.Clone(history), callerTurn)

	// Reply generation must finish before classification: the classifier's
	// input includes the reply.
	reply, err := e.gateway.GenerateReply(ctx, extended)
	if err != nil {
		return Directive{}, err
	}
	assistantTurn := conversation.Turn{Role: conversation.RoleAssistant, Content: reply.Text}
	if err := e.turns.Append(ctx, ev.CallID, assistantTurn); err != nil {
		return Directive{}, err
	}
	extended = append(extended, assistantTurn)

	analysis, err := e.gateway.Classify(ctx, extended)
	if err != nil {
		return Directive{}, err
	}

	existing, err := e.records.Get(ctx, ev.CallID)
	if err != nil && !errors.Is(err, calls.ErrNotFound) {
		return Directive{}, err
	}
	startedAt := existing.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}

	// First escalation wins: once any channel has been notified, later turns
	// never re-escalate, regardless of importance.
	var notified []string
	if analysis.Importance.EscalationEligible() && existing.NotifiedChannels.Empty() {
		notified = e.notifier.Dispatch(ctx, notify.Escalation{
			Caller:    caller,
			Summary:   analysis.Summary,
			CallID:    ev.CallID,
			StartedAt: startedAt,
		})
		if len(notified) > 0 && e.trail != nil {
			if err := e.trail.LogEscalation(ctx, ev.CallID, caller, string(analysis.Importance), notified); err != nil {
				e.log.Warn("audit append failed", "call_id", ev.CallID, "err", err)
			}
		}
	}

	// Count the exchange being processed, not the store's view: the two turns
	// just appended may not be re-read here.
	turnCount := len(history) + 2
	terminate := analysis.Importance == calls.ImportanceSpam ||
		(analysis.Importance == calls.ImportanceCasual && turnCount >= casualHangupTurns) ||
		ev.CallStatus == "completed"

	upd := calls.Update{
		Caller:     caller,
		Topic:      analysis.Topic,
		Summary:    analysis.Summary,
		Importance: analysis.Importance,
		State:      calls.StateListening,
		Channels:   calls.NewChannelSet(notified...),
		Now:        now,
	}
	if terminate {
		upd.State = calls.StateTerminated
		upd.EndedAt = &now
		if dur, ok := ev.durationSeconds(); ok {
			upd.DurationSeconds = &dur
		}
	}
	if _, err := e.records.Apply(ctx, ev.CallID, upd); err != nil {
		return Directive{}, err
	}

	if terminate {
		if e.trail != nil {
			reason := terminationReason(analysis.Importance, turnCount, ev.CallStatus)
			if err := e.trail.LogTermination(ctx, ev.CallID, caller, string(analysis.Importance), reason); err != nil {
				e.log.Warn("audit append failed", "call_id", ev.CallID, "err", err)
			}
		}
		return Directive{Action: ActionHangup, Reply: reply.Text, Closing: e.prompts.Closing}, nil
	}
	return Directive{Action: ActionGather, Reply: reply.Text, Prompt: e.prompts.Listening, PauseSeconds: 1}, nil
}

func terminationReason(importance calls.Importance, turnCount int, callStatus string) string {
	switch {
	case importance == calls.ImportanceSpam:
		return "spam detected"
	case callStatus == "completed":
		return "provider reported call completed"
	default:
		return "casual conversation reached " + strconv.Itoa(turnCount) + " turns"
	}
}
