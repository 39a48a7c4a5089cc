package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// NotificationLedger stores each partition as three keys:
//
//	notifications:<p>           hash   notifId -> event JSON
//	notifications:<p>:timeline  zset   notifId scored by createdAt (ms)
//	notifications:<p>:unread    set    notifIds not yet read
//
// Read status lives only in the unread set, so marking read is a single SREM.
type NotificationLedger struct {
	rdb   goredis.Cmdable
	clock clockwork.Clock
}

var _ domain.NotificationLedger = (*NotificationLedger)(nil)

func NewNotificationLedger(rdb goredis.Cmdable, clock clockwork.Clock) *NotificationLedger {
	return &NotificationLedger{rdb: rdb, clock: clock}
}

type notificationRecord struct {
	Type          domain.NotificationType `json:"type"`
	CounterpartID string                  `json:"counterpartId,omitempty"`
	CreatedAtMs   int64                   `json:"createdAtMs"`
	Message       string                  `json:"message"`
	TaskID        string                  `json:"taskId,omitempty"`
}

// Timestamps are kept at millisecond precision, matching the timeline score.
const timePrecision = time.Millisecond

func (l *NotificationLedger) Append(ctx context.Context, event domain.NotificationEvent) (*domain.NotificationEvent, error) {
	if event.Partition == "" {
		return nil, errors.New("notification partition is required")
	}
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q", event.Type)
	}

	event.ID = uuid.NewString()
	event.Status = domain.StatusUnread
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.clock.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC().Truncate(timePrecision)
	event.Message = truncateRunes(event.Message, domain.MaxNotificationMessageLength)

	payload, err := json.Marshal(notificationRecord{
		Type:          event.Type,
		CounterpartID: event.CounterpartID,
		CreatedAtMs:   event.CreatedAt.UnixMilli(),
		Message:       event.Message,
		TaskID:        event.TaskID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := l.rdb.TxPipeline()
	pipe.HSet(ctx, eventsKey(event.Partition), event.ID, payload)
	pipe.ZAdd(ctx, timelineKey(event.Partition), goredis.Z{
		Score:  float64(event.CreatedAt.UnixMilli()),
		Member: event.ID,
	})
	pipe.SAdd(ctx, unreadKey(event.Partition), event.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("append notification failed: %w", err)
	}

	return &event, nil
}

// List returns up to limit events, newest first.
func (l *NotificationLedger) List(ctx context.Context, partition string, limit int) ([]domain.NotificationEvent, error) {
	if limit <= 0 {
		return []domain.NotificationEvent{}, nil
	}

	ids, err := l.rdb.ZRevRange(ctx, timelineKey(partition), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read notification timeline: %w", err)
	}
	if len(ids) == 0 {
		return []domain.NotificationEvent{}, nil
	}

	unread, err := l.unreadSet(ctx, partition)
	if err != nil {
		return nil, err
	}
	return l.load(ctx, partition, ids, unread)
}

// Unread returns every unread event in the partition, newest first.
func (l *NotificationLedger) Unread(ctx context.Context, partition string) ([]domain.NotificationEvent, error) {
	unread, err := l.unreadSet(ctx, partition)
	if err != nil {
		return nil, err
	}
	if len(unread) == 0 {
		return []domain.NotificationEvent{}, nil
	}

	ids := make([]string, 0, len(unread))
	for id := range unread {
		ids = append(ids, id)
	}
	events, err := l.load(ctx, partition, ids, unread)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(events)
	return events, nil
}

// MarkRead is idempotent for known ids; unknown ids yield ErrNotificationNotFound.
func (l *NotificationLedger) MarkRead(ctx context.Context, partition, notifID string) error {
	exists, err := l.rdb.HExists(ctx, eventsKey(partition), notifID).Result()
	if err != nil {
		return fmt.Errorf("failed to look up notification: %w", err)
	}
	if !exists {
		return domain.ErrNotificationNotFound
	}
	if err := l.rdb.SRem(ctx, unreadKey(partition), notifID).Err(); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (l *NotificationLedger) unreadSet(ctx context.Context, partition string) (map[string]struct{}, error) {
	members, err := l.rdb.SMembers(ctx, unreadKey(partition)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read unread set: %w", err)
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set, nil
}

func (l *NotificationLedger) load(ctx context.Context, partition string, ids []string, unread map[string]struct{}) ([]domain.NotificationEvent, error) {
	values, err := l.rdb.HMGet(ctx, eventsKey(partition), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}

	events := make([]domain.NotificationEvent, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Indexed but missing from the hash; skip rather than fail the whole read.
			continue
		}
		var rec notificationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode notification %s: %w", ids[i], err)
		}

		status := domain.StatusRead
		if _, isUnread := unread[ids[i]]; isUnread {
			status = domain.StatusUnread
		}
		events = append(events, domain.NotificationEvent{
			ID:            ids[i],
			Partition:     partition,
			Type:          rec.Type,
			CounterpartID: rec.CounterpartID,
			Status:        status,
			CreatedAt:     timeFromMillis(rec.CreatedAtMs),
			Message:       rec.Message,
			TaskID:        rec.TaskID,
		})
	}
	return events, nil
}

func sortNewestFirst(events []domain.NotificationEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func eventsKey(partition string) string   { return "notifications:" + partition }
func timelineKey(partition string) string { return "notifications:" + partition + ":timeline" }
func unreadKey(partition string) string   { return "notifications:" + partition + ":unread" }

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
