package handlers

import (
	"context"
	"time"

	"PairChat/service/chat"
	"PairChat/tools/errs"
)

// PinMessagePayload pinMessage / unpinMessage 入站载荷。
type PinMessagePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// PinMessageHandler pinMessage：每房间至多一条置顶。
// 先整房清除再置顶新目标，保证"至多一条"不靠前端自觉。
type PinMessageHandler struct{}

func NewPinMessageHandler() chat.Handler   { return &PinMessageHandler{} }
func (h *PinMessageHandler) Event() string { return chat.EvPinMessage }

func (h *PinMessageHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in PinMessagePayload
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

	now := time.Now()
	if err := s.Store().UnpinRoom(dbCtx, msg.RoomID); err != nil {
		return errs.WrapMsg(err, "unpin room", "roomID", msg.RoomID)
	}
	if err := s.Store().PinMessage(dbCtx, in.MessageID, in.UserID, now); err != nil {
		return errs.WrapMsg(err, "pin message", "messageID", in.MessageID)
	}

	s.EmitToRoom(msg.RoomID, chat.EvMessagePinned, map[string]any{
		"messageId": in.MessageID,
		"pinnedBy":  in.UserID,
		"pinnedAt":  now,
	})
	return nil
}

// UnpinMessageHandler unpinMessage：未置顶时是无操作。
type UnpinMessageHandler struct{}

func NewUnpinMessageHandler() chat.Handler   { return &UnpinMessageHandler{} }
func (h *UnpinMessageHandler) Event() string { return chat.EvUnpinMessage }

func (h *UnpinMessageHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in PinMessagePayload
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
	if !msg.IsPinned {
		return nil
	}

	if err := s.Store().UnpinMessage(dbCtx, in.MessageID); err != nil {
		return errs.WrapMsg(err, "unpin message", "messageID", in.MessageID)
	}

	s.EmitToRoom(msg.RoomID, chat.EvMessageUnpinned, map[string]any{
		"messageId": in.MessageID,
	})
	return nil
}
