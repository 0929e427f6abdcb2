package handlers

import (
	"context"
	"time"

	"PairChat/logger"
	"PairChat/service/chat"
	"PairChat/tools/errs"
)

const historyLimit = 100

// JoinRoomHandler joinRoom：连接切入房间并回放历史。
// 历史从该用户的清空水位之后取，只发给发起加入的这条连接。
// 加入本身不改未读数，也不动 readBy。
type JoinRoomHandler struct{}

func NewJoinRoomHandler() chat.Handler   { return &JoinRoomHandler{} }
func (h *JoinRoomHandler) Event() string { return chat.EvJoinRoom }

func (h *JoinRoomHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var roomID string
	if err := f.Bind(&roomID); err != nil {
		return err
	}
	if roomID == "" {
		return nil
	}

	s := ctx.S
	s.ConnMgr().JoinRoom(c.ConnID, roomID)

	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var after time.Time
	if c.UserID != "" {
		conv, err := s.Store().GetConversation(dbCtx, roomID)
		if err == nil {
			if t, ok := conv.ClearedAtOf(c.UserID); ok {
				after = t
			}
		} else if !errs.IsNotFound(err) {
			logger.Warnf("[room] load conversation room=%s err: %v", roomID, err)
		}
	}

	msgs, err := s.Store().ListHistory(dbCtx, roomID, after, historyLimit)
	if err != nil {
		return errs.WrapMsg(err, "list history", "roomID", roomID)
	}
	s.EmitToConn(c, chat.EvLoadMessages, msgs)
	return nil
}

// LeaveRoomHandler leaveRoom：连接离开当前房间，退出房间级通道。
type LeaveRoomHandler struct{}

func NewLeaveRoomHandler() chat.Handler   { return &LeaveRoomHandler{} }
func (h *LeaveRoomHandler) Event() string { return chat.EvLeaveRoom }

func (h *LeaveRoomHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	ctx.S.ConnMgr().LeaveRoom(c.ConnID)
	return nil
}
