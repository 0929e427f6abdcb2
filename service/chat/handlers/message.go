package handlers

import (
	"context"
	"time"

	"PairChat/logger"
	"PairChat/module/chat/model"
	"PairChat/service/chat"
	"PairChat/tools/errs"
	"PairChat/tools/ids"
)

// 媒体消息的预览占位符
const mediaPreview = "File"

// SendMessagePayload sendMessage 入站载荷。
type SendMessagePayload struct {
	RoomID  string          `json:"roomId"`
	UserID  string          `json:"userId"`
	Content string          `json:"content"`
	Images  []string        `json:"images"`
	FileURL string          `json:"fileUrl"`
	ReplyTo *model.ReplyRef `json:"replyTo"`
}

// SendMessageHandler sendMessage：过滤 -> 落盘 -> 自动已读 -> 聚合更新 -> 三路 fanout。
type SendMessageHandler struct{}

func NewSendMessageHandler() chat.Handler   { return &SendMessageHandler{} }
func (h *SendMessageHandler) Event() string { return chat.EvSendMessage }

func (h *SendMessageHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in SendMessagePayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.RoomID == "" || in.UserID == "" {
		return nil
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 过滤网关：有旧词表时刷新失败继续用旧表；从未加载成功才落到这里，记警告后不过滤放行
	if err := s.Filter().Ensure(dbCtx); err != nil {
		logger.Warnf("[message] keyword refresh err: %v", err)
	}
	content := s.Filter().Apply(in.Content)

	msg := &model.Message{
		ID:        ids.GenerateString(),
		RoomID:    in.RoomID,
		SenderID:  in.UserID,
		Content:   content,
		Images:    in.Images,
		FileURL:   in.FileURL,
		Kind:      model.KindText,
		ReplyTo:   in.ReplyTo,
		ReadBy:    []string{in.UserID},
		CreatedAt: time.Now(),
	}
	if err := s.Store().InsertMessage(dbCtx, msg); err != nil {
		return errs.WrapMsg(err, "insert message", "roomID", in.RoomID)
	}

	conv, err := s.Store().GetConversation(dbCtx, in.RoomID)
	if err != nil {
		// 房间聚合不存在：消息已保留，但不再继续流水线
		logger.Errorf("[message] conversation missing room=%s: %v", in.RoomID, err)
		return nil
	}

	preview := content
	if preview == "" && msg.HasMedia() {
		preview = mediaPreview
	}
	return s.DeliverMessage(dbCtx, msg, conv, preview)
}

// EditMessagePayload editMessage 入站载荷。
type EditMessagePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
}

// EditMessageHandler editMessage：仅发送者可编辑，已撤回不可编辑；
// 编辑最新一条时预览追加 "(edited)" 标记（只刷预览，不动未读）。
type EditMessageHandler struct{}

func NewEditMessageHandler() chat.Handler   { return &EditMessageHandler{} }
func (h *EditMessageHandler) Event() string { return chat.EvEditMessage }

func (h *EditMessageHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in EditMessagePayload
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
	if msg.SenderID != in.UserID || msg.IsRevoked {
		return nil
	}

	if err := s.Filter().Ensure(dbCtx); err != nil {
		logger.Warnf("[message] keyword refresh err: %v", err)
	}
	content := s.Filter().Apply(in.Content)

	now := time.Now()
	if err := s.Store().EditMessage(dbCtx, in.MessageID, content, now); err != nil {
		return errs.WrapMsg(err, "edit message", "messageID", in.MessageID)
	}

	s.EmitToRoom(msg.RoomID, chat.EvMessageEdited, map[string]any{
		"_id":      in.MessageID,
		"content":  content,
		"isEdited": true,
		"editedAt": now,
	})

	if latest, err := s.Store().LatestMessage(dbCtx, msg.RoomID); err == nil && latest != nil && latest.ID == in.MessageID {
		s.PropagatePreview(dbCtx, msg.RoomID, content+" (edited)", "")
	}
	return nil
}

// RevokeMessagePayload revokeMessage 入站载荷。
type RevokeMessagePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// RevokeMessageHandler revokeMessage：软删除，内容与媒体字段清空，骨架保留。
type RevokeMessageHandler struct{}

func NewRevokeMessageHandler() chat.Handler   { return &RevokeMessageHandler{} }
func (h *RevokeMessageHandler) Event() string { return chat.EvRevokeMessage }

func (h *RevokeMessageHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in RevokeMessagePayload
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
	if msg.SenderID != in.UserID {
		return nil
	}

	if err := s.Store().RevokeMessage(dbCtx, in.MessageID); err != nil {
		return errs.WrapMsg(err, "revoke message", "messageID", in.MessageID)
	}

	s.EmitToRoom(msg.RoomID, chat.EvMessageRevoked, map[string]any{
		"messageId": in.MessageID,
	})

	if latest, err := s.Store().LatestMessage(dbCtx, msg.RoomID); err == nil && latest != nil && latest.ID == in.MessageID {
		s.PropagatePreview(dbCtx, msg.RoomID, "Message revoked", "")
	}
	return nil
}
