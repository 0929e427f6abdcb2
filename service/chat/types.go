package chat

// ===== 事件名（入站）=====

const (
	EvRegisterUser    = "registerUser"
	EvJoinRoom        = "joinRoom"
	EvLeaveRoom       = "leaveRoom"
	EvSendMessage     = "sendMessage"
	EvEditMessage     = "editMessage"
	EvRevokeMessage   = "revokeMessage"
	EvSendReaction    = "sendReaction"
	EvPinMessage      = "pinMessage"
	EvUnpinMessage    = "unpinMessage"
	EvTyping          = "typing"
	EvStopTyping      = "stopTyping"
	EvMarkAsRead      = "markAsRead"
	EvCreateReminder  = "createReminder"
	EvUpdateReminder  = "updateReminder"
	EvGetReminder     = "getReminder"
	EvCancelReminder  = "cancelReminder"
	EvStartVideoCall  = "startVideoCall"
	EvAcceptVideoCall = "acceptVideoCall"
	EvRejectVideoCall = "rejectVideoCall"
	EvEndVideoCall    = "endVideoCall"
	EvMissedVideoCall = "missedVideoCall"
	EvUserUpdated     = "userUpdated"
	EvAvatarUpdated   = "userAvatarUpdated"
)

// ===== 事件名（出站）=====

const (
	EvOnlineUsers         = "onlineUsers"
	EvLoadMessages        = "loadMessages"
	EvReceiveMessage      = "receiveMessage"
	EvConversationUpdated = "conversationUpdated"
	EvMessagesRead        = "messagesRead"
	EvMessageEdited       = "messageEdited"
	EvMessageRevoked      = "messageRevoked"
	EvMessagePinned       = "messagePinned"
	EvMessageUnpinned     = "messageUnpinned"
	EvReactionUpdated     = "reactionUpdated"
	EvReminderCreated     = "reminderCreated"
	EvReminderUpdated     = "reminderUpdated"
	EvReminderCancelled   = "reminderCancelled"
	EvReminderData        = "reminderData"
	EvReminderError       = "reminderError"
	EvIncomingVideoCall   = "incomingVideoCall"
	EvVideoCallAccepted   = "videoCallAccepted"
	EvVideoCallRejected   = "videoCallRejected"
	EvVideoCallMissed     = "videoCallMissed"
	EvCallEnded           = "call-ended"
	EvNewNotification     = "newNotification"
	EvChatUserUpdated     = "chatUserUpdated"
)

// Handler 处理一类入站事件。
type Handler interface {
	Event() string
	Handle(ctx *Context, f *Frame, c *Client) error
}

// Context 每次分发携带的引擎入口。
type Context struct {
	S *Server
}
