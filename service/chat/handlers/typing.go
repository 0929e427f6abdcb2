package handlers

import (
	"PairChat/service/chat"
)

// TypingPayload typing / stopTyping 入站载荷。
type TypingPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// TypingHandler 打字指示器：纯转发，不落盘。
// 按房间级通道转给当前在房间里的其他连接。
type TypingHandler struct {
	event string
}

func NewTypingHandler() chat.Handler     { return &TypingHandler{event: chat.EvTyping} }
func NewStopTypingHandler() chat.Handler { return &TypingHandler{event: chat.EvStopTyping} }

func (h *TypingHandler) Event() string { return h.event }

func (h *TypingHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in TypingPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.RoomID == "" {
		return nil
	}
	ctx.S.EmitToRoom(in.RoomID, h.event, in)
	return nil
}
