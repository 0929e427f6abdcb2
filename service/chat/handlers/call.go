package handlers

import (
	"context"
	"fmt"
	"time"

	"PairChat/logger"
	"PairChat/module/chat/model"
	"PairChat/service/chat"
	"PairChat/tools/errs"
	"PairChat/tools/ids"
)

// 通话结果消息的正文与预览
const (
	callEndedContent    = "Video Call"
	callRejectedContent = "Call Rejected"
	callMissedContent   = "Missed Call"

	callEndedPreview    = "📞 Video Call"
	callRejectedPreview = "📞 Call Rejected"
	callMissedPreview   = "📞 Missed Call"
)

// CallPayload 信令类事件的通用入站载荷。
type CallPayload struct {
	RoomID      string `json:"roomId"`
	From        string `json:"from"`
	To          string `json:"to"`
	CallID      string `json:"callId"`
	VideoRoomID string `json:"videoRoomId"`
	CallerID    string `json:"callerId"`
	Duration    int64  `json:"duration"`
}

// StartVideoCallHandler startVideoCall：邀请转发到被叫的用户级通道
// （全部设备同时振铃）。videoRoomId 缺省时服务端补一个。
type StartVideoCallHandler struct{}

func NewStartVideoCallHandler() chat.Handler   { return &StartVideoCallHandler{} }
func (h *StartVideoCallHandler) Event() string { return chat.EvStartVideoCall }

func (h *StartVideoCallHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CallPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.To == "" {
		return nil
	}
	videoRoom := in.VideoRoomID
	if videoRoom == "" {
		videoRoom = fmt.Sprintf("video-%d", time.Now().UnixMilli())
	}
	ctx.S.EmitToUser(in.To, chat.EvIncomingVideoCall, map[string]any{
		"from":        in.From,
		"roomId":      in.RoomID,
		"videoRoomId": videoRoom,
		"callId":      in.CallID,
	})
	return nil
}

// AcceptVideoCallHandler acceptVideoCall：接受回执转给主叫。
type AcceptVideoCallHandler struct{}

func NewAcceptVideoCallHandler() chat.Handler   { return &AcceptVideoCallHandler{} }
func (h *AcceptVideoCallHandler) Event() string { return chat.EvAcceptVideoCall }

func (h *AcceptVideoCallHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CallPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.To == "" {
		return nil
	}
	ctx.S.EmitToUser(in.To, chat.EvVideoCallAccepted, map[string]any{
		"videoRoomId": in.VideoRoomID,
		"roomId":      in.RoomID,
	})
	return nil
}

// RejectVideoCallHandler rejectVideoCall：回执给主叫 + 聊天流落一条通话结果。
type RejectVideoCallHandler struct{}

func NewRejectVideoCallHandler() chat.Handler   { return &RejectVideoCallHandler{} }
func (h *RejectVideoCallHandler) Event() string { return chat.EvRejectVideoCall }

func (h *RejectVideoCallHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CallPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.To != "" {
		ctx.S.EmitToUser(in.To, chat.EvVideoCallRejected, map[string]any{
			"roomId": in.RoomID,
			"callId": in.CallID,
		})
	}
	// 结果消息的发送者记在主叫名下
	return writeCallOutcome(ctx.S, in.CallID, in.RoomID, in.To,
		callRejectedContent, model.CallRejected, 0, callRejectedPreview)
}

// EndVideoCallHandler endVideoCall：先广播挂断让双方全部设备收起通话界面，
// 再落通话结果消息（带时长）。
type EndVideoCallHandler struct{}

func NewEndVideoCallHandler() chat.Handler   { return &EndVideoCallHandler{} }
func (h *EndVideoCallHandler) Event() string { return chat.EvEndVideoCall }

func (h *EndVideoCallHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CallPayload
	if err := f.Bind(&in); err != nil {
		return err
	}

	s := ctx.S
	hangup := map[string]any{"roomId": in.RoomID, "callId": in.CallID}
	if in.To != "" {
		s.EmitToUser(in.To, chat.EvCallEnded, hangup)
	}
	if c.UserID != "" && c.UserID != in.To {
		s.EmitToUser(c.UserID, chat.EvCallEnded, hangup)
	}

	sender := in.CallerID
	if sender == "" {
		sender = c.UserID
	}
	return writeCallOutcome(s, in.CallID, in.RoomID, sender,
		callEndedContent, model.CallEnded, in.Duration, callEndedPreview)
}

// MissedVideoCallHandler missedVideoCall：超时未接，通知被叫并落结果消息。
type MissedVideoCallHandler struct{}

func NewMissedVideoCallHandler() chat.Handler   { return &MissedVideoCallHandler{} }
func (h *MissedVideoCallHandler) Event() string { return chat.EvMissedVideoCall }

func (h *MissedVideoCallHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CallPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.To != "" {
		ctx.S.EmitToUser(in.To, chat.EvVideoCallMissed, map[string]any{
			"roomId": in.RoomID,
			"callId": in.CallID,
		})
	}
	sender := in.CallerID
	if sender == "" {
		sender = c.UserID
	}
	return writeCallOutcome(ctx.S, in.CallID, in.RoomID, sender,
		callMissedContent, model.CallMissed, 0, callMissedPreview)
}

// writeCallOutcome 同一 callId 只落一条终态消息；双方并发上报时后到方空转。
// 消息走标准流水线，通话双方的未读语义与普通消息一致。
func writeCallOutcome(s *chat.Server, callID, roomID, senderID, content, status string, duration int64, preview string) error {
	if roomID == "" || senderID == "" {
		return nil
	}
	if !s.MarkCallTerminal(callID) {
		return nil
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := s.Store().GetConversation(dbCtx, roomID)
	if err != nil {
		logger.Errorf("[call] conversation missing room=%s: %v", roomID, err)
		return nil
	}

	msg := &model.Message{
		ID:       ids.GenerateString(),
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Kind:     model.KindCall,
		Call: &model.CallInfo{
			Status:   status,
			Duration: duration,
		},
		ReadBy:    []string{senderID},
		CreatedAt: time.Now(),
	}
	if err := s.Store().InsertMessage(dbCtx, msg); err != nil {
		return errs.WrapMsg(err, "insert call outcome", "roomID", roomID)
	}
	return s.DeliverMessage(dbCtx, msg, conv, preview)
}
