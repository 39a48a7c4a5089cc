package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/anandavicky123/syncertica/internal/domain"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

// NotificationService serves an actor's own notification partition.
type NotificationService struct {
	ledger  domain.NotificationLedger
	metrics *metrics.NotificationMetrics
}

func NewNotificationService(ledger domain.NotificationLedger, m *metrics.NotificationMetrics) *NotificationService {
	return &NotificationService{ledger: ledger, metrics: m}
}

// List clamps limit to (0, MaxNotificationLimit]; non-positive means the default.
func (s *NotificationService) List(ctx context.Context, actor domain.Actor, limit int) ([]domain.NotificationEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultNotificationLimit
	case limit > MaxNotificationLimit:
		limit = MaxNotificationLimit
	}
	return s.ledger.List(ctx, actor.PartitionKey(), limit)
}

func (s *NotificationService) Unread(ctx context.Context, actor domain.Actor) ([]domain.NotificationEvent, error) {
	return s.ledger.Unread(ctx, actor.PartitionKey())
}

// UnreadByConversation counts unread events per counterpart. Managers only
// see worker messages, keyed by worker; workers see everything, keyed by sender.
// Events without a counterpart are system notices and are left out.
func (s *NotificationService) UnreadByConversation(ctx context.Context, actor domain.Actor) (domain.UnreadSummary, error) {
	events, err := s.ledger.Unread(ctx, actor.PartitionKey())
	if err != nil {
		return domain.UnreadSummary{}, err
	}

	summary := domain.UnreadSummary{ByCounterpart: map[string]int{}}
	for _, ev := range conversationEvents(actor, events) {
		summary.ByCounterpart[ev.CounterpartID]++
		summary.Total++
	}
	return summary, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, notifID string) error {
	if err := s.ledger.MarkRead(ctx, actor.PartitionKey(), notifID); err != nil {
		return err
	}
	s.metrics.RecordMarked("single", 1)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	events, err := s.ledger.Unread(ctx, actor.PartitionKey())
	if err != nil {
		return 0, err
	}
	n := s.markEach(ctx, actor, events)
	s.metrics.RecordMarked("all", n)
	return n, nil
}

// MarkReadFrom marks every unread event from one counterpart. For managers
// only worker messages count, matching what UnreadByConversation reports.
func (s *NotificationService) MarkReadFrom(ctx context.Context, actor domain.Actor, counterpartID string) (int, error) {
	if counterpartID == "" {
		return 0, errors.New("counterpart id is required")
	}

	events, err := s.ledger.Unread(ctx, actor.PartitionKey())
	if err != nil {
		return 0, err
	}

	var matching []domain.NotificationEvent
	for _, ev := range conversationEvents(actor, events) {
		if ev.CounterpartID == counterpartID {
			matching = append(matching, ev)
		}
	}

	n := s.markEach(ctx, actor, matching)
	s.metrics.RecordMarked("sender", n)
	return n, nil
}

// Publish appends an event produced outside the request path.
func (s *NotificationService) Publish(ctx context.Context, event domain.NotificationEvent) (*domain.NotificationEvent, error) {
	if strings.TrimSpace(event.Partition) == "" {
		return nil, errors.New("recipient is required")
	}
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q", event.Type)
	}

	stored, err := s.ledger.Append(ctx, event)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAppend(string(stored.Type))
	return stored, nil
}

// markEach marks items one by one; a failure is logged and skipped, never rolled back.
func (s *NotificationService) markEach(ctx context.Context, actor domain.Actor, events []domain.NotificationEvent) int {
	marked := 0
	for _, ev := range events {
		if err := s.ledger.MarkRead(ctx, actor.PartitionKey(), ev.ID); err != nil {
			s.metrics.RecordMarkFailure()
			slog.WarnContext(ctx, "Failed to mark notification read", "actor", actor.String(), "notif_id", ev.ID, "error", err)
			continue
		}
		marked++
	}
	return marked
}

// conversationEvents keeps the events that belong to a conversation: they
// name a counterpart, and for managers they are worker messages.
func conversationEvents(actor domain.Actor, events []domain.NotificationEvent) []domain.NotificationEvent {
	out := events[:0:0]
	for _, ev := range events {
		if ev.CounterpartID == "" {
			continue
		}
		if actor.IsManager() && ev.Type != domain.NotificationWorkerMessage {
			continue
		}
		out = append(out, ev)
	}
	return out
}
