package chat

import (
	"sort"
	"sync"
)

// ===== 数据结构 =====

// ConnManager 同时承担两份进程态：
//   - 在线表：userID -> (connID -> *Client)，首条连接建表、清空即删
//   - 活跃房间表：connID -> roomID，以及反向索引 roomID -> conns
//
// 原实现依赖单线程运行时的全局 map；这里按显式归属重构，
// 所有访问走定义好的操作并由一把 RWMutex 保护。
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[string]map[string]*Client
	byRoom map[string]map[string]*Client
	room   map[string]string // connID -> active roomID
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
		byRoom: make(map[string]map[string]*Client),
		room:   make(map[string]string),
	}
}

// ===== 连接生命周期 =====

// Attach 连接建立即登记（此时可能尚未 registerUser，UserID 为空）。
func (m *ConnManager) Attach(c *Client) {
	if c == nil || c.ConnID == "" {
		return
	}
	m.mu.Lock()
	m.byConn[c.ConnID] = c
	m.mu.Unlock()
}

// BindUser registerUser：把连接归到用户名下。对同一连接幂等。
func (m *ConnManager) BindUser(connID, userID string) *Client {
	if connID == "" || userID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byConn[connID]
	if !ok {
		return nil
	}
	if c.UserID == userID {
		return c // 重复注册是 no-op
	}
	if c.UserID != "" {
		m.unbindUserLocked(c)
	}
	c.UserID = userID
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[string]*Client)
	}
	m.byUser[userID][connID] = c
	return c
}

// Detach 断开注销：清活跃房间、摘在线表。重复调用安全（迟到的重复断开信号）。
func (m *ConnManager) Detach(connID string) (userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byConn[connID]
	if !ok {
		return ""
	}
	m.leaveRoomLocked(connID)
	m.unbindUserLocked(c)
	delete(m.byConn, connID)
	return c.UserID
}

func (m *ConnManager) unbindUserLocked(c *Client) {
	if c.UserID == "" {
		return
	}
	if mm := m.byUser[c.UserID]; mm != nil {
		delete(mm, c.ConnID)
		if len(mm) == 0 {
			delete(m.byUser, c.UserID)
		}
	}
}

// ===== 在线查询 =====

func (m *ConnManager) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]) > 0
}

func (m *ConnManager) ConnectionsOf(userID string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.byUser[userID]))
	for _, c := range m.byUser[userID] {
		out = append(out, c)
	}
	return out
}

// OnlineUserIDs 全量在线列表（每次增减都广播，量级见设计说明）。
func (m *ConnManager) OnlineUserIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byUser))
	for u := range m.byUser {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (m *ConnManager) All() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.byConn))
	for _, c := range m.byConn {
		out = append(out, c)
	}
	return out
}

func (m *ConnManager) Get(connID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byConn[connID]
	return c, ok
}

// ===== 活跃房间 =====

// JoinRoom 一条连接同一时刻只活跃在一个房间；二次 join 自动先退旧房间。
func (m *ConnManager) JoinRoom(connID, roomID string) {
	if connID == "" || roomID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byConn[connID]
	if !ok {
		return
	}
	m.leaveRoomLocked(connID)
	m.room[connID] = roomID
	if m.byRoom[roomID] == nil {
		m.byRoom[roomID] = make(map[string]*Client)
	}
	m.byRoom[roomID][connID] = c
}

// LeaveRoom 只清活跃房间关联，连接保持打开（主动离开与断开前清理共用）。
func (m *ConnManager) LeaveRoom(connID string) (roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveRoomLocked(connID)
}

func (m *ConnManager) leaveRoomLocked(connID string) string {
	roomID, ok := m.room[connID]
	if !ok {
		return ""
	}
	delete(m.room, connID)
	if mm := m.byRoom[roomID]; mm != nil {
		delete(mm, connID)
		if len(mm) == 0 {
			delete(m.byRoom, roomID)
		}
	}
	return roomID
}

func (m *ConnManager) ActiveRoomOf(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.room[connID]
	return r, ok
}

func (m *ConnManager) RoomClients(roomID string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.byRoom[roomID]))
	for _, c := range m.byRoom[roomID] {
		out = append(out, c)
	}
	return out
}

// UserActiveInRoom 该用户是否有任一连接正活跃在 roomID（自动已读的判定）。
func (m *ConnManager) UserActiveInRoom(userID, roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for connID := range m.byUser[userID] {
		if m.room[connID] == roomID {
			return true
		}
	}
	return false
}
