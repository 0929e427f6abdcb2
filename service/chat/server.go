package chat

import (
	"context"
	"sync"
	"time"

	"PairChat/logger"
	"PairChat/tools/safe"
)

// ContentFilter 关键词过滤网关（service/filter 的实现）。
type ContentFilter interface {
	Ensure(ctx context.Context) error
	Apply(text string) string
}

// PresenceMirror 可选的在线状态镜像（Redis 实现）。
type PresenceMirror interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
}

// Bridge 可选的跨网关 fanout 桥（NATS 实现）。
// 本节点发出的每个用户/房间/全网帧同时发布到桥上，别的节点投给它们的本地连接。
type Bridge interface {
	PublishUser(userID string, payload []byte) error
	PublishRoom(roomID string, payload []byte) error
	PublishAll(payload []byte) error
}

// Server 引擎装配点：注册表、分发器、存储、过滤网关与可选的镜像/桥。
type Server struct {
	node    string
	disp    *Dispatcher
	connMgr *ConnManager
	store   Store
	filter  ContentFilter
	fanout  *Fanout

	presence PresenceMirror
	bridge   Bridge

	// 通话终态去重：同一 callId 只落一条通话结果消息
	callMu    sync.Mutex
	callsDone map[string]struct{}
}

func NewServer(node string, store Store, filter ContentFilter) *Server {
	return &Server{
		node:      node,
		disp:      NewDispatcher(),
		connMgr:   NewConnManager(),
		store:     store,
		filter:    filter,
		fanout:    NewFanout(4, 1024),
		callsDone: make(map[string]struct{}),
	}
}

func (s *Server) Node() string          { return s.node }
func (s *Server) Disp() *Dispatcher     { return s.disp }
func (s *Server) ConnMgr() *ConnManager { return s.connMgr }
func (s *Server) Store() Store          { return s.store }
func (s *Server) Filter() ContentFilter { return s.filter }

func (s *Server) SetPresenceMirror(p PresenceMirror) { s.presence = p }
func (s *Server) SetBridge(b Bridge)                 { s.bridge = b }

// PresenceOnline 异步刷新 Redis 在线镜像；未配置镜像时是空操作。
func (s *Server) PresenceOnline(userID string) {
	if s.presence == nil {
		return
	}
	p := s.presence
	safe.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.Online(ctx, userID); err != nil {
			logger.Warnf("[presence] online user=%s err: %v", userID, err)
		}
	})
}

// MarkCallTerminal 首次见到该 callId 的终态返回 true；
// 双方并发上报同一通话终态时只有一方会赢。空 callId 不去重（保留旧行为）。
func (s *Server) MarkCallTerminal(callID string) bool {
	if callID == "" {
		return true
	}
	s.callMu.Lock()
	defer s.callMu.Unlock()
	if _, ok := s.callsDone[callID]; ok {
		return false
	}
	s.callsDone[callID] = struct{}{}
	return true
}

// ===== 出站 =====

// EmitToConn 单连接投递。
func (s *Server) EmitToConn(c *Client, event string, payload any) {
	data, err := BuildFrame(event, payload)
	if err != nil {
		logger.Errorf("[emit] build frame err event=%s: %v", event, err)
		return
	}
	c.Enqueue(data)
}

// EmitToUser 用户级通道：该用户的全部本地连接，外加桥上的远端节点。
func (s *Server) EmitToUser(userID, event string, payload any) {
	data, err := BuildFrame(event, payload)
	if err != nil {
		logger.Errorf("[emit] build frame err event=%s: %v", event, err)
		return
	}
	s.deliverUserLocal(userID, data)
	if s.bridge != nil {
		if err := s.bridge.PublishUser(userID, data); err != nil {
			logger.Warnf("[bridge] publish user=%s err: %v", userID, err)
		}
	}
}

// EmitToRoom 房间级通道：当前活跃在该房间的连接。
func (s *Server) EmitToRoom(roomID, event string, payload any) {
	data, err := BuildFrame(event, payload)
	if err != nil {
		logger.Errorf("[emit] build frame err event=%s: %v", event, err)
		return
	}
	s.deliverRoomLocal(roomID, data)
	if s.bridge != nil {
		if err := s.bridge.PublishRoom(roomID, data); err != nil {
			logger.Warnf("[bridge] publish room=%s err: %v", roomID, err)
		}
	}
}

// BroadcastAll 全连接广播（在线列表、资料变更这类全局事件）。
func (s *Server) BroadcastAll(event string, payload any) {
	data, err := BuildFrame(event, payload)
	if err != nil {
		logger.Errorf("[emit] build frame err event=%s: %v", event, err)
		return
	}
	s.fanout.Broadcast(s.connMgr.All(), data)
	if s.bridge != nil {
		if err := s.bridge.PublishAll(data); err != nil {
			logger.Warnf("[bridge] publish all err: %v", err)
		}
	}
}

// BroadcastOnline 每次上线/下线变更后推全量在线用户列表。
func (s *Server) BroadcastOnline() {
	s.BroadcastAll(EvOnlineUsers, s.connMgr.OnlineUserIDs())
}

// ===== 桥的本地投递端（远端帧不再回发到桥）=====

func (s *Server) DeliverUserLocal(userID string, payload []byte) { s.deliverUserLocal(userID, payload) }
func (s *Server) DeliverRoomLocal(roomID string, payload []byte) { s.deliverRoomLocal(roomID, payload) }
func (s *Server) DeliverAllLocal(payload []byte) {
	s.fanout.Broadcast(s.connMgr.All(), payload)
}

func (s *Server) deliverUserLocal(userID string, payload []byte) {
	for _, c := range s.connMgr.ConnectionsOf(userID) {
		c.Enqueue(payload)
	}
}

func (s *Server) deliverRoomLocal(roomID string, payload []byte) {
	for _, c := range s.connMgr.RoomClients(roomID) {
		c.Enqueue(payload)
	}
}
