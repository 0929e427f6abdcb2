package chat

import (
	"context"
	"time"

	"PairChat/module/chat/model"
)

// Store 抽象：生产实现 Mongo（module/chat/message）；内存实现（store_mem.go）供测试。
type Store interface {
	// 消息
	InsertMessage(ctx context.Context, m *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	LatestMessage(ctx context.Context, roomID string) (*model.Message, error)
	ListHistory(ctx context.Context, roomID string, after time.Time, limit int) ([]model.Message, error)
	AddReadBy(ctx context.Context, messageID string, users []string) error
	MarkRoomRead(ctx context.Context, roomID, userID string) error
	UpdateReactions(ctx context.Context, messageID string, reactions []model.Reaction) error
	RevokeMessage(ctx context.Context, messageID string) error
	EditMessage(ctx context.Context, messageID, content string, at time.Time) error
	UnpinRoom(ctx context.Context, roomID string) error
	PinMessage(ctx context.Context, messageID, userID string, at time.Time) error
	UnpinMessage(ctx context.Context, messageID string) error
	UpdateReminderMessage(ctx context.Context, messageID, content string, scheduledAt time.Time, at time.Time) error
	MarkReminderMessageCancelled(ctx context.Context, messageID string, at time.Time) error

	// 房间聚合
	GetConversation(ctx context.Context, roomID string) (*model.Conversation, error)
	ApplyMessageUpdate(ctx context.Context, roomID string, u model.ConversationUpdate) (*model.Conversation, error)
	ResetUnread(ctx context.Context, roomID, userID string) (*model.Conversation, error)

	// 提醒
	InsertReminder(ctx context.Context, r *model.Reminder) error
	GetReminder(ctx context.Context, id string) (*model.Reminder, error)
	SetReminderMessageID(ctx context.Context, id, messageID string) error
	UpdateReminder(ctx context.Context, id string, content *string, scheduledAt *time.Time, at time.Time) error
	CancelReminder(ctx context.Context, id string, at time.Time) error
	MarkReminderNotified(ctx context.Context, id string) error
	DueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
}
