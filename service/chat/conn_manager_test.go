package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(connID string) *Client {
	return NewClient(connID, nil, 16)
}

func TestBindUserIdempotent(t *testing.T) {
	m := NewConnManager()
	c := newTestClient("c1")
	m.Attach(c)

	require.NotNil(t, m.BindUser("c1", "alice"))
	require.NotNil(t, m.BindUser("c1", "alice"))

	assert.True(t, m.IsOnline("alice"))
	assert.Len(t, m.ConnectionsOf("alice"), 1)
}

func TestRebindMovesConnection(t *testing.T) {
	m := NewConnManager()
	c := newTestClient("c1")
	m.Attach(c)

	m.BindUser("c1", "alice")
	m.BindUser("c1", "bob")

	assert.False(t, m.IsOnline("alice"))
	assert.True(t, m.IsOnline("bob"))
}

func TestDetachIdempotent(t *testing.T) {
	m := NewConnManager()
	c := newTestClient("c1")
	m.Attach(c)
	m.BindUser("c1", "alice")

	assert.Equal(t, "alice", m.Detach("c1"))
	assert.Equal(t, "", m.Detach("c1"))
	assert.False(t, m.IsOnline("alice"))
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	m := NewConnManager()
	for _, id := range []string{"c1", "c2"} {
		m.Attach(newTestClient(id))
		m.BindUser(id, "alice")
	}

	assert.Len(t, m.ConnectionsOf("alice"), 2)

	// 掉一条连接仍在线，掉完才下线
	m.Detach("c1")
	assert.True(t, m.IsOnline("alice"))
	m.Detach("c2")
	assert.False(t, m.IsOnline("alice"))
}

func TestOnlineUserIDsSorted(t *testing.T) {
	m := NewConnManager()
	for i, u := range []string{"zoe", "amy", "bob"} {
		id := string(rune('a' + i))
		m.Attach(newTestClient(id))
		m.BindUser(id, u)
	}
	assert.Equal(t, []string{"amy", "bob", "zoe"}, m.OnlineUserIDs())
}

func TestJoinRoomLeavesPrevious(t *testing.T) {
	m := NewConnManager()
	c := newTestClient("c1")
	m.Attach(c)
	m.BindUser("c1", "alice")

	m.JoinRoom("c1", "room1")
	room, ok := m.ActiveRoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, "room1", room)

	// 一条连接同一时刻只在一个房间
	m.JoinRoom("c1", "room2")
	room, _ = m.ActiveRoomOf("c1")
	assert.Equal(t, "room2", room)
	assert.Empty(t, m.RoomClients("room1"))
	assert.Len(t, m.RoomClients("room2"), 1)
}

func TestUserActiveInRoom(t *testing.T) {
	m := NewConnManager()
	c1, c2 := newTestClient("c1"), newTestClient("c2")
	m.Attach(c1)
	m.Attach(c2)
	m.BindUser("c1", "alice")
	m.BindUser("c2", "alice")

	m.JoinRoom("c1", "room1")
	assert.True(t, m.UserActiveInRoom("alice", "room1"))
	assert.False(t, m.UserActiveInRoom("alice", "room2"))

	// 任意一条连接在房间里就算活跃
	m.JoinRoom("c2", "room2")
	assert.True(t, m.UserActiveInRoom("alice", "room1"))
	assert.True(t, m.UserActiveInRoom("alice", "room2"))

	m.LeaveRoom("c1")
	assert.False(t, m.UserActiveInRoom("alice", "room1"))
}

func TestDetachClearsRoom(t *testing.T) {
	m := NewConnManager()
	c := newTestClient("c1")
	m.Attach(c)
	m.BindUser("c1", "alice")
	m.JoinRoom("c1", "room1")

	m.Detach("c1")
	assert.Empty(t, m.RoomClients("room1"))
	_, ok := m.ActiveRoomOf("c1")
	assert.False(t, ok)
}
