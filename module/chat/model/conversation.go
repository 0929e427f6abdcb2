package model

import "time"

// bson 字段名
const (
	ConvFieldRoomID       = "room_id"
	ConvFieldMembers      = "members"
	ConvFieldLastMessage  = "last_message"
	ConvFieldLastSenderID = "last_sender_id"
	ConvFieldUnread       = "unread"
	ConvFieldClearedAt    = "cleared_at"
	ConvFieldUpdatedAt    = "updated_at"
)

// Conversation 两人房间聚合。由外部撮合流程创建；引擎只更新。
// Unread 以成员ID为 key；ClearedAt 为各成员的"清空历史"水位（只增不减）。
type Conversation struct {
	RoomID       string               `bson:"room_id" json:"roomId"`
	Members      []string             `bson:"members" json:"members"`
	LastMessage  string               `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	LastSenderID string               `bson:"last_sender_id,omitempty" json:"lastSenderId,omitempty"`
	Unread       map[string]int64     `bson:"unread,omitempty" json:"unread,omitempty"`
	ClearedAt    map[string]time.Time `bson:"cleared_at,omitempty" json:"clearedAt,omitempty"`
	CreatedAt    time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updatedAt"`
}

// ConversationUpdate 是一次流水线运行对房间聚合的全部改动，
// 存储层必须作为单条条件更新执行（归 0 与 +1 不允许拆成两趟往返）。
type ConversationUpdate struct {
	Preview         string
	SenderID        string   // 空串表示不更新 last_sender_id
	ResetUnread     []string // unread 归 0：发送者 + 自动已读成员
	IncrementUnread []string // unread +1：其余成员
	At              time.Time
}

// UnreadOf 取某成员的未读数（缺省 0）。
func (c *Conversation) UnreadOf(user string) int64 {
	if c.Unread == nil {
		return 0
	}
	return c.Unread[user]
}

// ClearedAtOf 取某成员的清空水位；第二返回值表示是否设置过。
func (c *Conversation) ClearedAtOf(user string) (time.Time, bool) {
	if c.ClearedAt == nil {
		return time.Time{}, false
	}
	t, ok := c.ClearedAt[user]
	return t, ok
}

// OtherMember 两人房间里 user 的对端；不存在则返回空串。
func (c *Conversation) OtherMember(user string) string {
	for _, m := range c.Members {
		if m != user {
			return m
		}
	}
	return ""
}
