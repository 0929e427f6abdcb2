package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairChat/module/chat/model"
	"PairChat/service/chat"
	"PairChat/tools/errs"
)

// maskFilter 固定词表的过滤替身。
type maskFilter struct{ words []string }

func (f maskFilter) Ensure(ctx context.Context) error { return nil }
func (f maskFilter) Apply(text string) string {
	for _, w := range f.words {
		text = strings.ReplaceAll(text, w, strings.Repeat("*", len(w)))
	}
	return text
}

type fixture struct {
	s     *chat.Server
	store *chat.MemStore
	ctx   *chat.Context
}

func newFixture(t *testing.T, words ...string) *fixture {
	t.Helper()
	store := chat.NewMemStore()
	s := chat.NewServer("node_test", store, maskFilter{words: words})
	RegisterAll(s)
	return &fixture{s: s, store: store, ctx: &chat.Context{S: s}}
}

func (fx *fixture) seedRoom(roomID string, members ...string) {
	fx.store.SeedConversation(&model.Conversation{
		RoomID:  roomID,
		Members: members,
		Unread:  map[string]int64{},
	})
}

// connect 建连接并走 registerUser；roomID 非空再走 joinRoom。
func (fx *fixture) connect(t *testing.T, connID, userID, roomID string) *chat.Client {
	t.Helper()
	c := chat.NewClient(connID, nil, 64)
	fx.s.ConnMgr().Attach(c)
	fx.dispatch(t, c, chat.EvRegisterUser, userID)
	if roomID != "" {
		fx.dispatch(t, c, chat.EvJoinRoom, roomID)
	}
	drain(t, c)
	return c
}

func (fx *fixture) dispatch(t *testing.T, c *chat.Client, event string, payload any) {
	t.Helper()
	require.NoError(t, fx.dispatchErr(c, event, payload))
}

func (fx *fixture) dispatchErr(c *chat.Client, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f := &chat.Frame{Event: event, Data: data}
	return fx.s.Disp().Dispatch(fx.ctx, f, c)
}

func drain(t *testing.T, c *chat.Client) []*chat.Frame {
	t.Helper()
	var out []*chat.Frame
	for {
		select {
		case raw := <-c.Send:
			f, err := chat.ParseFrame(raw)
			require.NoError(t, err)
			out = append(out, f)
		default:
			return out
		}
	}
}

func byEvent(frames []*chat.Frame, event string) []*chat.Frame {
	var out []*chat.Frame
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func roomMessages(t *testing.T, fx *fixture, roomID string) []model.Message {
	t.Helper()
	msgs, err := fx.store.ListHistory(context.Background(), roomID, time.Time{}, 0)
	require.NoError(t, err)
	return msgs
}

// ===== 注册与在线 =====

func TestRegisterBroadcastsOnlineUsers(t *testing.T) {
	fx := newFixture(t)
	a := chat.NewClient("ca", nil, 64)
	fx.s.ConnMgr().Attach(a)

	fx.dispatch(t, a, chat.EvRegisterUser, "alice")

	// 在线广播走 fanout 工作池，异步到达
	var users []string
	require.Eventually(t, func() bool {
		online := byEvent(drain(t, a), chat.EvOnlineUsers)
		if len(online) != 1 {
			return false
		}
		require.NoError(t, online[0].Bind(&users))
		return true
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice"}, users)
}

func TestRegisterEmptyUserIgnored(t *testing.T) {
	fx := newFixture(t)
	a := chat.NewClient("ca", nil, 64)
	fx.s.ConnMgr().Attach(a)

	fx.dispatch(t, a, chat.EvRegisterUser, "")
	assert.Empty(t, fx.s.ConnMgr().OnlineUserIDs())
}

// ===== 发消息 =====

func TestSendMessageFiltersAndDelivers(t *testing.T) {
	fx := newFixture(t, "scam")
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "room1")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "this is a scam link",
	})

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "this is a **** link", msgs[0].Content)
	assert.Equal(t, model.KindText, msgs[0].Kind)
	// bob 在房间里：自动已读
	assert.ElementsMatch(t, []string{"alice", "bob"}, msgs[0].ReadBy)

	recv := byEvent(drain(t, b), chat.EvReceiveMessage)
	require.Len(t, recv, 1)
	var got model.Message
	require.NoError(t, recv[0].Bind(&got))
	assert.Equal(t, "this is a **** link", got.Content)
}

func TestSendMessageMediaPreview(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "images": []string{"http://x/pic.jpg"},
	})

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, "File", conv.LastMessage)
}

func TestSendMessageMissingConversationKeepsMessage(t *testing.T) {
	fx := newFixture(t)
	a := fx.connect(t, "ca", "alice", "")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "ghost", "userId": "alice", "content": "hello",
	})

	// 消息保留，后续流水线放弃
	assert.Len(t, roomMessages(t, fx, "ghost"), 1)
}

// ===== 已读 =====

func TestMarkAsReadResetsUnread(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "one",
	})
	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "two",
	})
	drain(t, b)

	fx.dispatch(t, b, chat.EvMarkAsRead, map[string]any{"roomId": "room1", "userId": "bob"})

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), conv.UnreadOf("bob"))

	// 全部历史消息的 readBy 都补上了 bob
	for _, m := range roomMessages(t, fx, "room1") {
		assert.True(t, m.ReadByContains("bob"), "message %s", m.ID)
	}

	updates := byEvent(drain(t, b), chat.EvConversationUpdated)
	require.Len(t, updates, 1)
	var sum chat.ConversationSummary
	require.NoError(t, updates[0].Bind(&sum))
	assert.Equal(t, int64(0), sum.UnreadCount)

	// 房间里的 alice 收到已读回执
	reads := byEvent(drain(t, a), chat.EvMessagesRead)
	require.NotEmpty(t, reads)
}

func TestMarkAsReadIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "one",
	})
	fx.dispatch(t, b, chat.EvMarkAsRead, map[string]any{"roomId": "room1", "userId": "bob"})
	fx.dispatch(t, b, chat.EvMarkAsRead, map[string]any{"roomId": "room1", "userId": "bob"})

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.ElementsMatch(t, []string{"alice", "bob"}, msgs[0].ReadBy)
}

// ===== 编辑 / 撤回 =====

func TestEditMessageOwnerOnly(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "room1")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "origin",
	})
	msgID := roomMessages(t, fx, "room1")[0].ID
	drain(t, a)
	drain(t, b)

	// 非发送者：静默丢弃
	fx.dispatch(t, b, chat.EvEditMessage, map[string]any{
		"roomId": "room1", "messageId": msgID, "userId": "bob", "content": "hacked",
	})
	assert.Equal(t, "origin", roomMessages(t, fx, "room1")[0].Content)
	assert.Empty(t, byEvent(drain(t, b), chat.EvMessageEdited))

	// 发送者：生效，预览带 (edited) 标记
	fx.dispatch(t, a, chat.EvEditMessage, map[string]any{
		"roomId": "room1", "messageId": msgID, "userId": "alice", "content": "fixed",
	})
	got := roomMessages(t, fx, "room1")[0]
	assert.Equal(t, "fixed", got.Content)
	assert.True(t, got.IsEdited)

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, "fixed (edited)", conv.LastMessage)

	edited := byEvent(drain(t, b), chat.EvMessageEdited)
	require.Len(t, edited, 1)
}

func TestEditRevokedMessageRejected(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "origin",
	})
	msgID := roomMessages(t, fx, "room1")[0].ID

	fx.dispatch(t, a, chat.EvRevokeMessage, map[string]any{
		"roomId": "room1", "messageId": msgID, "userId": "alice",
	})
	fx.dispatch(t, a, chat.EvEditMessage, map[string]any{
		"roomId": "room1", "messageId": msgID, "userId": "alice", "content": "resurrect",
	})

	got := roomMessages(t, fx, "room1")[0]
	assert.True(t, got.IsRevoked)
	assert.Empty(t, got.Content)
}

func TestRevokeLatestUpdatesPreview(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "secret",
	})
	msgID := roomMessages(t, fx, "room1")[0].ID

	fx.dispatch(t, a, chat.EvRevokeMessage, map[string]any{
		"roomId": "room1", "messageId": msgID, "userId": "alice",
	})

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, "Message revoked", conv.LastMessage)
}

// ===== 表情 =====

func TestReactionToggleAndReplace(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "room1")

	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "hi",
	})
	msgID := roomMessages(t, fx, "room1")[0].ID

	react := func(c *chat.Client, user, typ string) {
		fx.dispatch(t, c, chat.EvSendReaction, map[string]any{
			"roomId": "room1", "messageId": msgID, "userId": user, "type": typ,
		})
	}

	react(b, "bob", "❤️")
	got, err := fx.store.GetMessage(context.Background(), msgID)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 1)

	// 换表情：替换而非叠加
	react(b, "bob", "👍")
	got, _ = fx.store.GetMessage(context.Background(), msgID)
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, "👍", got.Reactions[0].Type)

	// 双人互不影响
	react(a, "alice", "❤️")
	got, _ = fx.store.GetMessage(context.Background(), msgID)
	assert.Len(t, got.Reactions, 2)

	// 同表情再点：取消
	react(b, "bob", "👍")
	got, _ = fx.store.GetMessage(context.Background(), msgID)
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, "alice", got.Reactions[0].UserID)
}

// ===== 置顶 =====

func TestPinIsExclusivePerRoom(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")

	for _, c := range []string{"one", "two"} {
		fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
			"roomId": "room1", "userId": "alice", "content": c,
		})
	}
	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 2)

	pin := func(id string) {
		fx.dispatch(t, a, chat.EvPinMessage, map[string]any{
			"roomId": "room1", "messageId": id, "userId": "alice",
		})
	}

	pin(msgs[0].ID)
	pin(msgs[1].ID)

	var pinned int
	for _, m := range roomMessages(t, fx, "room1") {
		if m.IsPinned {
			pinned++
			assert.Equal(t, msgs[1].ID, m.ID)
		}
	}
	assert.Equal(t, 1, pinned, "at most one pinned message per room")

	fx.dispatch(t, a, chat.EvUnpinMessage, map[string]any{
		"roomId": "room1", "messageId": msgs[1].ID, "userId": "alice",
	})
	for _, m := range roomMessages(t, fx, "room1") {
		assert.False(t, m.IsPinned)
	}
}

// ===== 历史回放 =====

func TestJoinRoomReplaysHistoryAfterClearedAt(t *testing.T) {
	fx := newFixture(t)
	cut := time.Now().Add(-time.Hour)
	fx.store.SeedConversation(&model.Conversation{
		RoomID:    "room1",
		Members:   []string{"alice", "bob"},
		Unread:    map[string]int64{},
		ClearedAt: map[string]time.Time{"bob": cut},
	})

	old := &model.Message{
		ID: "m-old", RoomID: "room1", SenderID: "alice", Content: "ancient",
		Kind: model.KindText, ReadBy: []string{"alice"}, CreatedAt: cut.Add(-time.Minute),
	}
	fresh := &model.Message{
		ID: "m-new", RoomID: "room1", SenderID: "alice", Content: "recent",
		Kind: model.KindText, ReadBy: []string{"alice"}, CreatedAt: cut.Add(time.Minute),
	}
	require.NoError(t, fx.store.InsertMessage(context.Background(), old))
	require.NoError(t, fx.store.InsertMessage(context.Background(), fresh))

	// bob 只看到水位之后的
	b := chat.NewClient("cb", nil, 64)
	fx.s.ConnMgr().Attach(b)
	fx.dispatch(t, b, chat.EvRegisterUser, "bob")
	drain(t, b)
	fx.dispatch(t, b, chat.EvJoinRoom, "room1")

	loads := byEvent(drain(t, b), chat.EvLoadMessages)
	require.Len(t, loads, 1)
	var hist []model.Message
	require.NoError(t, loads[0].Bind(&hist))
	require.Len(t, hist, 1)
	assert.Equal(t, "m-new", hist[0].ID)

	// alice 没清过：两条都在
	a := chat.NewClient("ca", nil, 64)
	fx.s.ConnMgr().Attach(a)
	fx.dispatch(t, a, chat.EvRegisterUser, "alice")
	drain(t, a)
	fx.dispatch(t, a, chat.EvJoinRoom, "room1")

	loads = byEvent(drain(t, a), chat.EvLoadMessages)
	require.Len(t, loads, 1)
	require.NoError(t, loads[0].Bind(&hist))
	assert.Len(t, hist, 2)
}

func TestJoinRoomKeepsUnreadUntilMarkAsRead(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "")

	// bob 不在房间：未读 +1
	fx.dispatch(t, a, chat.EvSendMessage, map[string]any{
		"roomId": "room1", "userId": "alice", "content": "hello",
	})
	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	require.Equal(t, int64(1), conv.UnreadOf("bob"))
	drain(t, b)

	// 进房只回放历史，未读数不动
	fx.dispatch(t, b, chat.EvJoinRoom, "room1")
	loads := byEvent(drain(t, b), chat.EvLoadMessages)
	require.Len(t, loads, 1)
	conv, err = fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), conv.UnreadOf("bob"))

	// 显式已读才清零并补 readBy
	fx.dispatch(t, b, chat.EvMarkAsRead, map[string]any{"roomId": "room1", "userId": "bob"})
	conv, err = fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), conv.UnreadOf("bob"))

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.ElementsMatch(t, []string{"alice", "bob"}, msgs[0].ReadBy)
}

func TestJoinRoomHistoryBounded(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 150; i++ {
		require.NoError(t, fx.store.InsertMessage(context.Background(), &model.Message{
			ID: fmt.Sprintf("m%03d", i), RoomID: "room1", SenderID: "alice",
			Content: fmt.Sprintf("msg %d", i), Kind: model.KindText,
			ReadBy: []string{"alice"}, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	b := fx.connect(t, "cb", "bob", "")
	fx.dispatch(t, b, chat.EvJoinRoom, "room1")

	loads := byEvent(drain(t, b), chat.EvLoadMessages)
	require.Len(t, loads, 1)
	var hist []model.Message
	require.NoError(t, loads[0].Bind(&hist))

	// 只回放最近 100 条，时间正序
	require.Len(t, hist, 100)
	assert.Equal(t, "m050", hist[0].ID)
	assert.Equal(t, "m149", hist[len(hist)-1].ID)
	for i := 1; i < len(hist); i++ {
		assert.True(t, hist[i].CreatedAt.After(hist[i-1].CreatedAt))
	}
}

// ===== 提醒 =====

func TestReminderLifecycle(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")

	when := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	fx.dispatch(t, a, chat.EvCreateReminder, map[string]any{
		"roomId": "room1", "content": "dinner", "scheduledDate": when,
		"creatorId": "alice", "creatorName": "Alice",
	})

	frames := drain(t, a)
	created := byEvent(frames, chat.EvReminderCreated)
	require.Len(t, created, 1)

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.Equal(t, model.KindReminder, msgs[0].Kind)
	require.NotNil(t, msgs[0].Reminder)
	remID := msgs[0].Reminder.ReminderID

	rem, err := fx.store.GetReminder(context.Background(), remID)
	require.NoError(t, err)
	assert.Equal(t, msgs[0].ID, rem.MessageID)

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, "📅 Reminder: dinner", conv.LastMessage)

	// 非创建者改：拒绝
	b := fx.connect(t, "cb", "bob", "room1")
	uerr := fx.dispatchErr(b, chat.EvUpdateReminder, map[string]any{
		"reminderId": remID, "userId": "bob", "content": "stolen",
	})
	assert.True(t, errs.IsUnauthorized(uerr))
	errFrames := byEvent(drain(t, b), chat.EvReminderError)
	require.Len(t, errFrames, 1)
	rem, _ = fx.store.GetReminder(context.Background(), remID)
	assert.Equal(t, "dinner", rem.Content)

	// 创建者改期：重新武装派发
	require.NoError(t, fx.store.MarkReminderNotified(context.Background(), remID))
	later := when.Add(2 * time.Hour)
	fx.dispatch(t, a, chat.EvUpdateReminder, map[string]any{
		"reminderId": remID, "userId": "alice", "scheduledDate": later,
	})
	rem, _ = fx.store.GetReminder(context.Background(), remID)
	assert.False(t, rem.NotificationSent)
	assert.Equal(t, later, rem.ScheduledAt.UTC())

	conv, _ = fx.store.GetConversation(context.Background(), "room1")
	assert.Equal(t, "📅 Rescheduled: dinner", conv.LastMessage)

	// 查询
	fx.dispatch(t, a, chat.EvGetReminder, map[string]any{"reminderId": remID})
	data := byEvent(drain(t, a), chat.EvReminderData)
	require.Len(t, data, 1)

	// 取消：提醒与链接消息同时打标
	fx.dispatch(t, a, chat.EvCancelReminder, map[string]any{
		"reminderId": remID, "userId": "alice",
	})
	rem, _ = fx.store.GetReminder(context.Background(), remID)
	assert.True(t, rem.IsCancelled)
	assert.True(t, rem.NotificationSent)

	linked, err := fx.store.GetMessage(context.Background(), rem.MessageID)
	require.NoError(t, err)
	assert.Equal(t, model.KindReminderCancelled, linked.Kind)

	conv, _ = fx.store.GetConversation(context.Background(), "room1")
	assert.Equal(t, "🚫 Cancelled reminder: dinner", conv.LastMessage)
}

func TestGetUnknownReminderEmitsError(t *testing.T) {
	fx := newFixture(t)
	a := fx.connect(t, "ca", "alice", "")

	fx.dispatch(t, a, chat.EvGetReminder, map[string]any{"reminderId": "ghost"})
	errFrames := byEvent(drain(t, a), chat.EvReminderError)
	require.Len(t, errFrames, 1)
}

// ===== 通话 =====

func TestStartVideoCallRingsAllCalleeDevices(t *testing.T) {
	fx := newFixture(t)
	a := fx.connect(t, "ca", "alice", "")
	b1 := fx.connect(t, "cb1", "bob", "")
	b2 := fx.connect(t, "cb2", "bob", "")
	drain(t, a)
	drain(t, b1)
	drain(t, b2)

	fx.dispatch(t, a, chat.EvStartVideoCall, map[string]any{
		"roomId": "room1", "from": "alice", "to": "bob", "callId": "call1", "videoRoomId": "vr1",
	})

	for _, c := range []*chat.Client{b1, b2} {
		rings := byEvent(drain(t, c), chat.EvIncomingVideoCall)
		require.Len(t, rings, 1)
		var payload map[string]any
		require.NoError(t, rings[0].Bind(&payload))
		assert.Equal(t, "vr1", payload["videoRoomId"])
		assert.Equal(t, "alice", payload["from"])
	}
	assert.Empty(t, byEvent(drain(t, a), chat.EvIncomingVideoCall))
}

func TestEndVideoCallWritesSingleOutcome(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "room1")

	end := map[string]any{
		"roomId": "room1", "to": "bob", "callerId": "alice",
		"callId": "call1", "duration": 42,
	}
	fx.dispatch(t, a, chat.EvEndVideoCall, end)
	// 双方并发上报同一通话：第二次空转
	fx.dispatch(t, b, chat.EvEndVideoCall, map[string]any{
		"roomId": "room1", "to": "alice", "callerId": "alice", "callId": "call1",
	})

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.Equal(t, model.KindCall, msgs[0].Kind)
	require.NotNil(t, msgs[0].Call)
	assert.Equal(t, model.CallEnded, msgs[0].Call.Status)
	assert.Equal(t, int64(42), msgs[0].Call.Duration)
	assert.Equal(t, "Video Call", msgs[0].Content)

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, "📞 Video Call", conv.LastMessage)

	hangups := byEvent(drain(t, b), chat.EvCallEnded)
	require.NotEmpty(t, hangups)
}

func TestRejectVideoCallOutcome(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "")
	b := fx.connect(t, "cb", "bob", "")
	drain(t, a)

	fx.dispatch(t, b, chat.EvRejectVideoCall, map[string]any{
		"roomId": "room1", "to": "alice", "callId": "call2",
	})

	rejected := byEvent(drain(t, a), chat.EvVideoCallRejected)
	require.Len(t, rejected, 1)

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.Equal(t, model.CallRejected, msgs[0].Call.Status)
	// 结果消息记在主叫名下
	assert.Equal(t, "alice", msgs[0].SenderID)

	conv, err := fx.store.GetConversation(context.Background(), "room1")
	require.NoError(t, err)
	assert.Equal(t, "📞 Call Rejected", conv.LastMessage)
}

func TestMissedVideoCallOutcome(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "")
	b := fx.connect(t, "cb", "bob", "")
	drain(t, b)

	fx.dispatch(t, a, chat.EvMissedVideoCall, map[string]any{
		"roomId": "room1", "to": "bob", "callerId": "alice", "callId": "call3",
	})

	missed := byEvent(drain(t, b), chat.EvVideoCallMissed)
	require.Len(t, missed, 1)

	msgs := roomMessages(t, fx, "room1")
	require.Len(t, msgs, 1)
	assert.Equal(t, model.CallMissed, msgs[0].Call.Status)
	assert.Equal(t, "Missed Call", msgs[0].Content)
}

// ===== 打字与资料 =====

func TestTypingRelaysToRoomOnly(t *testing.T) {
	fx := newFixture(t)
	fx.seedRoom("room1", "alice", "bob")
	a := fx.connect(t, "ca", "alice", "room1")
	b := fx.connect(t, "cb", "bob", "room1")
	other := fx.connect(t, "cc", "carol", "")
	drain(t, a)
	drain(t, b)
	drain(t, other)

	fx.dispatch(t, a, chat.EvTyping, map[string]any{"roomId": "room1", "userId": "alice"})

	assert.Len(t, byEvent(drain(t, b), chat.EvTyping), 1)
	assert.Empty(t, byEvent(drain(t, other), chat.EvTyping))
	assert.Empty(t, roomMessages(t, fx, "room1"), "typing must not persist")
}

func TestAvatarUpdatedBroadcast(t *testing.T) {
	fx := newFixture(t)
	a := fx.connect(t, "ca", "alice", "")
	b := fx.connect(t, "cb", "bob", "")
	drain(t, a)
	drain(t, b)

	fx.dispatch(t, a, chat.EvAvatarUpdated, map[string]any{
		"userId": "alice", "avatar": "http://cdn/x.png",
	})

	// fanout 走工作池：等到帧到达
	require.Eventually(t, func() bool {
		return len(byEvent(drain(t, b), chat.EvAvatarUpdated)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownEventRejected(t *testing.T) {
	fx := newFixture(t)
	a := fx.connect(t, "ca", "alice", "")
	err := fx.dispatchErr(a, "selfDestruct", map[string]any{})
	assert.Error(t, err)
}
