package handlers

import (
	"context"
	"time"

	"PairChat/service/chat"
	"PairChat/tools/errs"
)

// MarkAsReadPayload markAsRead 入站载荷。
type MarkAsReadPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// MarkAsReadHandler markAsRead：房间级批量已读 + 未读归零。
// readBy 的 $addToSet 保证重复上报幂等；归零后把摘要推回本人、
// 已读事件推给房间里的其他人。
type MarkAsReadHandler struct{}

func NewMarkAsReadHandler() chat.Handler   { return &MarkAsReadHandler{} }
func (h *MarkAsReadHandler) Event() string { return chat.EvMarkAsRead }

func (h *MarkAsReadHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in MarkAsReadPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.RoomID == "" || in.UserID == "" {
		return nil
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Store().MarkRoomRead(dbCtx, in.RoomID, in.UserID); err != nil {
		return errs.WrapMsg(err, "mark room read", "roomID", in.RoomID)
	}

	conv, err := s.Store().ResetUnread(dbCtx, in.RoomID, in.UserID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil
		}
		return errs.WrapMsg(err, "reset unread", "roomID", in.RoomID)
	}

	s.EmitToUser(in.UserID, chat.EvConversationUpdated, chat.ConversationSummary{
		Conversation: conv,
		UnreadCount:  0,
	})
	s.EmitToRoom(in.RoomID, chat.EvMessagesRead, chat.ReadEvent{RoomID: in.RoomID, UserID: in.UserID})
	return nil
}
