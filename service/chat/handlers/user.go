package handlers

import (
	"time"

	"PairChat/service/chat"
)

// UserUpdatedHandler userUpdated：资料变更原样广播到全部连接。
// 载荷不解包，前端发什么转什么。
type UserUpdatedHandler struct{}

func NewUserUpdatedHandler() chat.Handler   { return &UserUpdatedHandler{} }
func (h *UserUpdatedHandler) Event() string { return chat.EvUserUpdated }

func (h *UserUpdatedHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if len(f.Data) == 0 {
		return nil
	}
	ctx.S.BroadcastAll(chat.EvChatUserUpdated, f.Data)
	return nil
}

// AvatarUpdatedPayload userAvatarUpdated 入站载荷。
type AvatarUpdatedPayload struct {
	UserID string `json:"userId"`
	Avatar string `json:"avatar"`
}

// AvatarUpdatedHandler userAvatarUpdated：头像变更广播，补一个服务端时间戳。
type AvatarUpdatedHandler struct{}

func NewAvatarUpdatedHandler() chat.Handler   { return &AvatarUpdatedHandler{} }
func (h *AvatarUpdatedHandler) Event() string { return chat.EvAvatarUpdated }

func (h *AvatarUpdatedHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	var in AvatarUpdatedPayload
	if err := f.Bind(&in); err != nil {
		return err
	}
	if in.UserID == "" || in.Avatar == "" {
		return nil
	}
	ctx.S.BroadcastAll(chat.EvAvatarUpdated, map[string]any{
		"userId":    in.UserID,
		"avatar":    in.Avatar,
		"updatedAt": time.Now(),
	})
	return nil
}
