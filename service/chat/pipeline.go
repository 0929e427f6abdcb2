package chat

import (
	"context"
	"time"

	"PairChat/logger"
	"PairChat/module/chat/model"
)

// ConversationSummary conversationUpdated 的出站载荷：
// 房间聚合 + 按接收者解出来的未读数。
type ConversationSummary struct {
	*model.Conversation
	UnreadCount int64 `json:"unreadCount"`
}

// ReadEvent messagesRead 的出站载荷。
type ReadEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// AutoReaders 自动已读集合：除发送者外、且有连接正活跃在该房间的成员。
func (s *Server) AutoReaders(roomID, senderID string, members []string) []string {
	var readers []string
	for _, m := range members {
		if m == senderID {
			continue
		}
		if s.connMgr.UserActiveInRoom(m, roomID) {
			readers = append(readers, m)
		}
	}
	return readers
}

// DeliverMessage 流水线的共用后半段：
// 消息本体已经落盘，这里做自动已读、房间聚合的单条原子更新与三路 fanout。
// send / 通话结果 / 提醒创建共用此路径，各自带上自己的预览文案。
func (s *Server) DeliverMessage(ctx context.Context, msg *model.Message, conv *model.Conversation, preview string) error {
	readers := s.AutoReaders(msg.RoomID, msg.SenderID, conv.Members)

	// 自动已读成员并入新消息的读集合（幂等）
	if len(readers) > 0 {
		if err := s.store.AddReadBy(ctx, msg.ID, readers); err != nil {
			return err
		}
		for _, r := range readers {
			if !msg.ReadByContains(r) {
				msg.ReadBy = append(msg.ReadBy, r)
			}
		}
	}

	// 归零集合 = 发送者 + 自动已读；其余成员 +1。归零优先于累加。
	reset := append([]string{msg.SenderID}, readers...)
	var inc []string
	for _, m := range conv.Members {
		if m == msg.SenderID || contains(readers, m) {
			continue
		}
		inc = append(inc, m)
	}

	updated, err := s.store.ApplyMessageUpdate(ctx, msg.RoomID, model.ConversationUpdate{
		Preview:         preview,
		SenderID:        msg.SenderID,
		ResetUnread:     reset,
		IncrementUnread: inc,
		At:              time.Now(),
	})
	if err != nil {
		// 消息已写入而聚合更新失败：不回滚，聚合在下一次成功事件上自愈
		return err
	}

	s.FanoutConversation(updated)
	s.EmitToRoom(msg.RoomID, EvReceiveMessage, msg)
	for _, r := range readers {
		s.EmitToRoom(msg.RoomID, EvMessagesRead, ReadEvent{RoomID: msg.RoomID, UserID: r})
	}
	return nil
}

// PropagatePreview 预览级传播（编辑/撤回命中最新一条时）：
// 只刷预览与时间戳，不碰未读计数。
func (s *Server) PropagatePreview(ctx context.Context, roomID, preview, senderID string) {
	updated, err := s.store.ApplyMessageUpdate(ctx, roomID, model.ConversationUpdate{
		Preview:  preview,
		SenderID: senderID,
		At:       time.Now(),
	})
	if err != nil {
		logger.Warnf("[pipeline] preview update room=%s err: %v", roomID, err)
		return
	}
	s.FanoutConversation(updated)
}

// FanoutConversation 逐成员把房间摘要推到用户级通道。
func (s *Server) FanoutConversation(conv *model.Conversation) {
	for _, m := range conv.Members {
		s.EmitToUser(m, EvConversationUpdated, ConversationSummary{
			Conversation: conv,
			UnreadCount:  conv.UnreadOf(m),
		})
	}
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
