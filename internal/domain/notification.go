package domain

import (
	"context"
	"time"
)

type NotificationType string

const (
	NotificationTaskUpdate    NotificationType = "task_update"
	NotificationWorkerMessage NotificationType = "worker_message"
)

func (t NotificationType) Valid() bool {
	return t == NotificationTaskUpdate || t == NotificationWorkerMessage
}

type NotificationStatus string

const (
	StatusUnread NotificationStatus = "unread"
	StatusRead   NotificationStatus = "read"
)

// MaxNotificationMessageLength bounds the stored message preview, in runes.
const MaxNotificationMessageLength = 100

type NotificationEvent struct {
	ID            string             `json:"notifId"`
	Partition     string             `json:"recipient"`
	Type          NotificationType   `json:"type"`
	CounterpartID string             `json:"counterpartId,omitempty"`
	Status        NotificationStatus `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	Message       string             `json:"message"`
	TaskID        string             `json:"taskId,omitempty"`
}

func ManagerPartition(managerID string) string {
	return "manager:" + managerID
}

// UnreadSummary counts unread events per counterpart.
type UnreadSummary struct {
	ByCounterpart map[string]int
	Total         int
}

type NotificationLedger interface {
	Append(ctx context.Context, event NotificationEvent) (*NotificationEvent, error)
	List(ctx context.Context, partition string, limit int) ([]NotificationEvent, error)
	Unread(ctx context.Context, partition string) ([]NotificationEvent, error)
	MarkRead(ctx context.Context, partition, notifID string) error
}
