package model

import "time"

// ===== 常量 =====

const (
	MsgTableName      = "message"
	ConvTableName     = "conversation"
	ReminderTableName = "reminder"
)

// 消息类型（与前端契约保持一致）
const (
	KindText              = "text"
	KindCall              = "call"
	KindReminder          = "reminder"
	KindReminderCancelled = "reminder_cancelled"
	KindSystem            = "system"
)

// 通话终态
const (
	CallEnded    = "ended"
	CallRejected = "rejected"
	CallMissed   = "missed"
)

// bson 字段名（更新语句里手拼 key 时用，避免散落的字符串字面量）
const (
	MsgFieldID        = "_id"
	MsgFieldRoomID    = "room_id"
	MsgFieldSenderID  = "sender_id"
	MsgFieldContent   = "content"
	MsgFieldImages    = "images"
	MsgFieldFileURL   = "file_url"
	MsgFieldKind      = "kind"
	MsgFieldReactions = "reactions"
	MsgFieldReadBy    = "read_by"
	MsgFieldIsEdited  = "is_edited"
	MsgFieldEditedAt  = "edited_at"
	MsgFieldIsRevoked = "is_revoked"
	MsgFieldIsPinned  = "is_pinned"
	MsgFieldPinnedBy  = "pinned_by"
	MsgFieldPinnedAt  = "pinned_at"
	MsgFieldCreatedAt = "created_at"
)

// Reaction 是 (成员, 表情) 二元组；同一成员至多一条。
type Reaction struct {
	UserID string `bson:"user_id" json:"userId"`
	Type   string `bson:"type" json:"type"`
}

// CallInfo 记录通话结果消息的载荷。
type CallInfo struct {
	Status   string `bson:"status" json:"status"`     // ended / rejected / missed
	Duration int64  `bson:"duration" json:"duration"` // seconds
}

// ReminderInfo 是提醒消息的快照载荷。
type ReminderInfo struct {
	ReminderID  string    `bson:"reminder_id" json:"reminderId"`
	Content     string    `bson:"content" json:"content"`
	ScheduledAt time.Time `bson:"scheduled_at" json:"scheduledDate"`
	CreatorName string    `bson:"creator_name" json:"creatorName"`
}

// ReplyRef 是被引用消息的快照（不随原消息后续变更）。
type ReplyRef struct {
	MessageID string   `bson:"message_id" json:"messageId"`
	UserID    string   `bson:"user_id" json:"userId"`
	Content   string   `bson:"content,omitempty" json:"content,omitempty"`
	Images    []string `bson:"images,omitempty" json:"images,omitempty"`
	FileURL   string   `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
}

// Message 消息本体。追加写入；撤回/编辑/置顶只做针对性字段更新，从不重写历史。
type Message struct {
	ID       string   `bson:"_id" json:"_id"`
	RoomID   string   `bson:"room_id" json:"roomId"`
	SenderID string   `bson:"sender_id" json:"userId"`
	Content  string   `bson:"content,omitempty" json:"content,omitempty"`
	Images   []string `bson:"images,omitempty" json:"images,omitempty"`
	FileURL  string   `bson:"file_url,omitempty" json:"fileUrl,omitempty"`

	Kind     string        `bson:"kind" json:"type"`
	Call     *CallInfo     `bson:"call,omitempty" json:"call,omitempty"`
	Reminder *ReminderInfo `bson:"reminder,omitempty" json:"reminder,omitempty"`
	ReplyTo  *ReplyRef     `bson:"reply_to,omitempty" json:"replyTo,omitempty"`

	Reactions []Reaction `bson:"reactions,omitempty" json:"reactions,omitempty"`
	ReadBy    []string   `bson:"read_by" json:"readBy"`

	IsEdited bool       `bson:"is_edited,omitempty" json:"isEdited,omitempty"`
	EditedAt *time.Time `bson:"edited_at,omitempty" json:"editedAt,omitempty"`

	IsRevoked bool `bson:"is_revoked,omitempty" json:"isRevoked,omitempty"`

	IsPinned bool       `bson:"is_pinned,omitempty" json:"isPinned,omitempty"`
	PinnedBy string     `bson:"pinned_by,omitempty" json:"pinnedBy,omitempty"`
	PinnedAt *time.Time `bson:"pinned_at,omitempty" json:"pinnedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// HasMedia 是否携带图片或文件（预览用占位符的判定条件）。
func (m *Message) HasMedia() bool {
	return len(m.Images) > 0 || m.FileURL != ""
}

// ReadByContains 读集合成员判定（幂等加入前置检查）。
func (m *Message) ReadByContains(user string) bool {
	for _, u := range m.ReadBy {
		if u == user {
			return true
		}
	}
	return false
}
