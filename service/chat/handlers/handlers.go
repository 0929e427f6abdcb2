package handlers

import "PairChat/service/chat"

// RegisterAll 把全部入站事件挂到分发器上。
func RegisterAll(s *chat.Server) {
	d := s.Disp()
	d.Register(NewRegisterUserHandler())
	d.Register(NewJoinRoomHandler())
	d.Register(NewLeaveRoomHandler())
	d.Register(NewSendMessageHandler())
	d.Register(NewEditMessageHandler())
	d.Register(NewRevokeMessageHandler())
	d.Register(NewSendReactionHandler())
	d.Register(NewPinMessageHandler())
	d.Register(NewUnpinMessageHandler())
	d.Register(NewTypingHandler())
	d.Register(NewStopTypingHandler())
	d.Register(NewMarkAsReadHandler())
	d.Register(NewCreateReminderHandler())
	d.Register(NewUpdateReminderHandler())
	d.Register(NewGetReminderHandler())
	d.Register(NewCancelReminderHandler())
	d.Register(NewStartVideoCallHandler())
	d.Register(NewAcceptVideoCallHandler())
	d.Register(NewRejectVideoCallHandler())
	d.Register(NewEndVideoCallHandler())
	d.Register(NewMissedVideoCallHandler())
	d.Register(NewUserUpdatedHandler())
	d.Register(NewAvatarUpdatedHandler())
}
