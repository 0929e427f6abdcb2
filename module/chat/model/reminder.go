package model

import "time"

// bson 字段名
const (
	ReminderFieldID          = "_id"
	ReminderFieldRoomID      = "room_id"
	ReminderFieldContent     = "content"
	ReminderFieldScheduledAt = "scheduled_at"
	ReminderFieldMessageID   = "message_id"
	ReminderFieldNotified    = "notification_sent"
	ReminderFieldCancelled   = "is_cancelled"
	ReminderFieldUpdatedAt   = "updated_at"
)

// Reminder 一次性提醒。改期会把 NotificationSent 置回 false；
// 取消同时置 IsCancelled 与 NotificationSent，堵住"取消与扫描赛跑"的窗口。
type Reminder struct {
	ID          string    `bson:"_id" json:"_id"`
	RoomID      string    `bson:"room_id" json:"roomId"`
	CreatorID   string    `bson:"creator_id" json:"creatorId"`
	CreatorName string    `bson:"creator_name,omitempty" json:"creatorName,omitempty"`
	Content     string    `bson:"content" json:"content"`
	ScheduledAt time.Time `bson:"scheduled_at" json:"scheduledDate"`

	// 创建时同步写入聊天流的那条 kind=reminder 消息
	MessageID string `bson:"message_id,omitempty" json:"messageId,omitempty"`

	NotificationSent bool `bson:"notification_sent" json:"notificationSent"`
	IsCancelled      bool `bson:"is_cancelled" json:"isCancelled"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
