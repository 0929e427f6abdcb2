package handlers

import (
	"context"
	"time"

	"PairChat/module/chat/model"
	"PairChat/service/chat"
	"PairChat/tools/errs"
)

// SendReactionPayload sendReaction 入站载荷。
type SendReactionPayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Type      string `json:"type"`
}

// SendReactionHandler sendReaction：每用户每消息至多一条表情。
// 同表情再点 = 取消；不同表情 = 替换。整组回写后把完整消息推回房间。
type SendReactionHandler struct{}

func NewSendReactionHandler() chat.Handler   { return &SendReactionHandler{} }
func (h *SendReactionHandler) Event() string { return chat.EvSendReaction }

func (h *SendReactionHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in SendReactionPayload
	if err := f.Bind(&in); err != nil {
		return err
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := s.Store().GetMessage(dbCtx, in.MessageID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}

	next := make([]model.Reaction, 0, len(msg.Reactions)+1)
	toggledOff := false
	for _, r := range msg.Reactions {
		if r.UserID != in.UserID {
			next = append(next, r)
			continue
		}
		if r.Type == in.Type {
			toggledOff = true // 同表情：移除，不再加回
		}
	}
	if !toggledOff {
		next = append(next, model.Reaction{UserID: in.UserID, Type: in.Type})
	}

	if err := s.Store().UpdateReactions(dbCtx, in.MessageID, next); err != nil {
		return errs.WrapMsg(err, "update reactions", "messageID", in.MessageID)
	}

	msg.Reactions = next
	s.EmitToRoom(msg.RoomID, chat.EvReactionUpdated, msg)
	return nil
}
