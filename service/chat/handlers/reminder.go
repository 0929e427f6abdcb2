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

// 提醒在会话列表里的预览文案
const (
	reminderCreatedPreview   = "📅 Reminder: "
	reminderUpdatedPreview   = "📅 Rescheduled: "
	reminderCancelledPreview = "🚫 Cancelled reminder: "
)

// CreateReminderPayload createReminder 入站载荷。
type CreateReminderPayload struct {
	RoomID      string    `json:"roomId"`
	Content     string    `json:"content"`
	ScheduledAt time.Time `json:"scheduledDate"`
	CreatorID   string    `json:"creatorId"`
	CreatorName string    `json:"creatorName"`
}

// CreateReminderHandler createReminder：提醒落盘 + 同步写入聊天流的链接消息。
// 链接消息走完整流水线（自动已读、未读、三路 fanout），之后把
// reminder 和 message 一起以 reminderCreated 推回房间。
type CreateReminderHandler struct{}

func NewCreateReminderHandler() chat.Handler   { return &CreateReminderHandler{} }
func (h *CreateReminderHandler) Event() string { return chat.EvCreateReminder }

func (h *CreateReminderHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CreateReminderPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.RoomID == "" || in.CreatorID == "" || in.Content == "" {
		return nil
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	rem := &model.Reminder{
		ID:          ids.GenerateString(),
		RoomID:      in.RoomID,
		CreatorID:   in.CreatorID,
		CreatorName: in.CreatorName,
		Content:     in.Content,
		ScheduledAt: in.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store().InsertReminder(dbCtx, rem); err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Failed to create reminder"})
		return errs.WrapMsg(err, "insert reminder", "roomID", in.RoomID)
	}

	conv, err := s.Store().GetConversation(dbCtx, in.RoomID)
	if err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Failed to create reminder"})
		logger.Errorf("[reminder] conversation missing room=%s: %v", in.RoomID, err)
		return nil
	}

	msg := &model.Message{
		ID:       ids.GenerateString(),
		RoomID:   in.RoomID,
		SenderID: in.CreatorID,
		Content:  in.Content,
		Kind:     model.KindReminder,
		Reminder: &model.ReminderInfo{
			ReminderID:  rem.ID,
			Content:     in.Content,
			ScheduledAt: in.ScheduledAt,
			CreatorName: in.CreatorName,
		},
		ReadBy:    []string{in.CreatorID},
		CreatedAt: now,
	}
	if err := s.Store().InsertMessage(dbCtx, msg); err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Failed to create reminder"})
		return errs.WrapMsg(err, "insert reminder message", "reminderID", rem.ID)
	}
	if err := s.Store().SetReminderMessageID(dbCtx, rem.ID, msg.ID); err != nil {
		logger.Warnf("[reminder] link message id reminder=%s err: %v", rem.ID, err)
	}
	rem.MessageID = msg.ID

	if err := s.DeliverMessage(dbCtx, msg, conv, reminderCreatedPreview+in.Content); err != nil {
		logger.Errorf("[reminder] deliver reminder message room=%s: %v", in.RoomID, err)
	}

	s.EmitToRoom(in.RoomID, chat.EvReminderCreated, map[string]any{
		"reminder": rem,
		"message":  msg,
	})
	return nil
}

// UpdateReminderPayload updateReminder 入站载荷。两个字段都可缺省（只改其一）。
type UpdateReminderPayload struct {
	ReminderID  string     `json:"reminderId"`
	UserID      string     `json:"userId"`
	Content     *string    `json:"content"`
	ScheduledAt *time.Time `json:"scheduledDate"`
}

// UpdateReminderHandler updateReminder：仅创建者可改。改期会把
// notification_sent 置回 false，让调度器重新投递；链接消息与
// 会话预览同步刷新，对端若不在房间未读 +1。
type UpdateReminderHandler struct{}

func NewUpdateReminderHandler() chat.Handler   { return &UpdateReminderHandler{} }
func (h *UpdateReminderHandler) Event() string { return chat.EvUpdateReminder }

func (h *UpdateReminderHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in UpdateReminderPayload
	if err := f.Bind(&in); err != nil {
		return err
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rem, err := s.Store().GetReminder(dbCtx, in.ReminderID)
	if err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Reminder not found"})
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}
	if rem.CreatorID != in.UserID {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Not authorized to update this reminder"})
		return errs.ErrUnauthorized.WrapMsg("update reminder", "id", in.ReminderID, "user", in.UserID)
	}

	now := time.Now()
	if err := s.Store().UpdateReminder(dbCtx, in.ReminderID, in.Content, in.ScheduledAt, now); err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Failed to update reminder"})
		return errs.WrapMsg(err, "update reminder", "reminderID", in.ReminderID)
	}

	content := rem.Content
	if in.Content != nil {
		content = *in.Content
	}
	scheduled := rem.ScheduledAt
	if in.ScheduledAt != nil {
		scheduled = *in.ScheduledAt
	}
	rem.Content = content
	rem.ScheduledAt = scheduled
	rem.UpdatedAt = now
	if in.ScheduledAt != nil {
		rem.NotificationSent = false
	}

	if rem.MessageID != "" {
		if err := s.Store().UpdateReminderMessage(dbCtx, rem.MessageID, content, scheduled, now); err != nil {
			logger.Warnf("[reminder] sync linked message reminder=%s err: %v", in.ReminderID, err)
		}
	}

	bumpReminderConversation(dbCtx, s, rem.RoomID, in.UserID, reminderUpdatedPreview+content)
	s.EmitToRoom(rem.RoomID, chat.EvReminderUpdated, map[string]any{"reminder": rem})
	return nil
}

// bumpReminderConversation 提醒改动没有新消息，只刷预览；对端不在房间时未读 +1。
func bumpReminderConversation(ctx context.Context, s *chat.Server, roomID, actorID, preview string) {
	conv, err := s.Store().GetConversation(ctx, roomID)
	if err != nil {
		logger.Warnf("[reminder] conversation lookup room=%s err: %v", roomID, err)
		return
	}
	var inc []string
	if other := conv.OtherMember(actorID); other != "" && !s.ConnMgr().UserActiveInRoom(other, roomID) {
		inc = []string{other}
	}
	updated, err := s.Store().ApplyMessageUpdate(ctx, roomID, model.ConversationUpdate{
		Preview:         preview,
		SenderID:        actorID,
		IncrementUnread: inc,
		At:              time.Now(),
	})
	if err != nil {
		logger.Warnf("[reminder] conversation update room=%s err: %v", roomID, err)
		return
	}
	s.FanoutConversation(updated)
}

// GetReminderPayload getReminder 入站载荷。
type GetReminderPayload struct {
	ReminderID string `json:"reminderId"`
}

// GetReminderHandler getReminder：单条查询，只回发到发起连接。
type GetReminderHandler struct{}

func NewGetReminderHandler() chat.Handler   { return &GetReminderHandler{} }
func (h *GetReminderHandler) Event() string { return chat.EvGetReminder }

func (h *GetReminderHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in GetReminderPayload
	if err := f.Bind(&in); err != nil {
		return err
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rem, err := s.Store().GetReminder(dbCtx, in.ReminderID)
	if err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Reminder not found"})
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}
	s.EmitToConn(c, chat.EvReminderData, map[string]any{"reminder": rem})
	return nil
}

// CancelReminderPayload cancelReminder 入站载荷。
type CancelReminderPayload struct {
	ReminderID string `json:"reminderId"`
	UserID     string `json:"userId"`
}

// CancelReminderHandler cancelReminder：仅创建者可取消。
// is_cancelled 与 notification_sent 同一条更新置位，链接消息改类型保留。
type CancelReminderHandler struct{}

func NewCancelReminderHandler() chat.Handler   { return &CancelReminderHandler{} }
func (h *CancelReminderHandler) Event() string { return chat.EvCancelReminder }

func (h *CancelReminderHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in CancelReminderPayload
	if err := f.Bind(&in); err != nil {
		return err
	}

	s := ctx.S
	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rem, err := s.Store().GetReminder(dbCtx, in.ReminderID)
	if err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Reminder not found"})
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}
	if rem.CreatorID != in.UserID {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Not authorized to cancel this reminder"})
		return errs.ErrUnauthorized.WrapMsg("cancel reminder", "id", in.ReminderID, "user", in.UserID)
	}

	now := time.Now()
	if err := s.Store().CancelReminder(dbCtx, in.ReminderID, now); err != nil {
		s.EmitToConn(c, chat.EvReminderError, map[string]any{"error": "Failed to cancel reminder"})
		return errs.WrapMsg(err, "cancel reminder", "reminderID", in.ReminderID)
	}
	if rem.MessageID != "" {
		if err := s.Store().MarkReminderMessageCancelled(dbCtx, rem.MessageID, now); err != nil {
			logger.Warnf("[reminder] mark linked message cancelled reminder=%s err: %v", in.ReminderID, err)
		}
	}

	bumpReminderConversation(dbCtx, s, rem.RoomID, in.UserID, reminderCancelledPreview+rem.Content)
	s.EmitToRoom(rem.RoomID, chat.EvReminderCancelled, map[string]any{
		"reminderId": in.ReminderID,
		"content":    rem.Content,
	})
	return nil
}
