package handlers

import (
	"PairChat/logger"
	"PairChat/service/chat"
)

// RegisterUserHandler registerUser：把连接绑定到用户身份。
// 载荷就是裸的 userId 字符串（与前端契约一致）。
type RegisterUserHandler struct{}

func NewRegisterUserHandler() chat.Handler   { return &RegisterUserHandler{} }
func (h *RegisterUserHandler) Event() string { return chat.EvRegisterUser }

func (h *RegisterUserHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var userID string
	if err := f.Bind(&userID); err != nil {
		return err
	}
	if userID == "" {
		return nil
	}

	s := ctx.S
	s.ConnMgr().BindUser(c.ConnID, userID)
	logger.Infof("[register] conn=%s user=%s", c.ConnID, userID)

	// Redis 镜像异步写；失败只记日志，注册表为准
	s.PresenceOnline(userID)
	s.BroadcastOnline()
	return nil
}
