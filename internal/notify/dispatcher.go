package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Escalation is the payload sent to human operators about a high-importance call.

type Escalation struct {
	Caller    string
	Summary   string
	CallID    string
	StartedAt time.Time
}

func (e Escalation) Message() string {
	return fmt.Sprintf(
		"Important call from %s: %s (call %s, started %s)",
		e.Caller, e.Summary, e.CallID, e.StartedAt.Format(time.RFC3339),
	)
}

// Channel delivers an escalation over one medium.

type Channel interface {
	Name() string
	Send(ctx context.Context, e Escalation) error
}

// Dispatcher fans an escalation out to every configured channel and reports
// which channels succeeded. Per-channel failures are logged, not returned:
// a failed channel simply stays out of the success list, which keeps the call
// eligible for a later escalation attempt if no channel succeeded.

type Dispatcher struct {
	channels []Channel
	log      *slog.Logger
}

func NewDispatcher(log *slog.Logger, channels ...Channel) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{channels: channels, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, e Escalation) []string {
	var (
		mu        sync.Mutex
		succeeded []string
		wg        sync.WaitGroup
	)
	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(ctx, e); err != nil {
				d.log.Warn("escalation delivery failed", "channel", ch.Name(), "call_id", e.CallID, "err", err)
				return
			}
			mu.Lock()
			succeeded = append(succeeded, ch.Name())
			mu.Unlock()
		}(ch)
	}
	wg.Wait()
	return succeeded
}
