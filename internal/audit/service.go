package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records orchestration decisions for internal ops review.
// Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CallID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogEscalation records that a call was escalated to human operators.
func (s *Service) LogEscalation(ctx context.Context, callID, caller, importance string, channels []string) error {
	return s.Append(ctx, Event{
		CallID:     callID,
		Type:       EventTypeEscalation,
		Caller:     caller,
		Importance: importance,
		Channels:   channels,
		Message:    "escalation dispatched",
	})
}

// LogTermination records the decision to end a call.
func (s *Service) LogTermination(ctx context.Context, callID, caller, importance, reason string) error {
	return s.Append(ctx, Event{
		CallID:     callID,
		Type:       EventTypeTermination,
		Caller:     caller,
		Importance: importance,
		Message:    reason,
	})
}
