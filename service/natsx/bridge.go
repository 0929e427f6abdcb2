package natsx

import (
	"encoding/json"
	"time"

	"PairChat/logger"
	"PairChat/tools/errs"

	"github.com/nats-io/nats.go"
)

const fanoutSubject = "chat.fanout"

// 帧作用域
const (
	ScopeUser = "user"
	ScopeRoom = "room"
	ScopeAll  = "all"
)

// Frame 跨网关转发的信封：本节点发出的每个出站帧
// 连同作用域发布出去，其他节点投给它们的本地连接。
type Frame struct {
	Node    string `json:"node"`
	Scope   string `json:"scope"`
	Target  string `json:"target,omitempty"`
	Payload []byte `json:"payload"`
}

// LocalSink 桥的本地投递端（*chat.Server 的裁剪面）。
type LocalSink interface {
	DeliverUserLocal(userID string, payload []byte)
	DeliverRoomLocal(roomID string, payload []byte)
	DeliverAllLocal(payload []byte)
}

// Bridge 多网关部署时经由 NATS 对齐各节点的 fanout。
type Bridge struct {
	nc   *nats.Conn
	node string
	sub  *nats.Subscription
}

func Dial(url, node string) (*Bridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("pairchat-"+node),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats", "url", url)
	}
	return &Bridge{nc: nc, node: node}, nil
}

func (b *Bridge) publish(scope, target string, payload []byte) error {
	data, err := json.Marshal(Frame{Node: b.node, Scope: scope, Target: target, Payload: payload})
	if err != nil {
		return err
	}
	return b.nc.Publish(fanoutSubject, data)
}

func (b *Bridge) PublishUser(userID string, payload []byte) error {
	return b.publish(ScopeUser, userID, payload)
}

func (b *Bridge) PublishRoom(roomID string, payload []byte) error {
	return b.publish(ScopeRoom, roomID, payload)
}

func (b *Bridge) PublishAll(payload []byte) error {
	return b.publish(ScopeAll, "", payload)
}

// Subscribe 消费其他节点的帧并投给本地连接；自己发的帧跳过。
func (b *Bridge) Subscribe(sink LocalSink) error {
	sub, err := b.nc.Subscribe(fanoutSubject, func(msg *nats.Msg) {
		var f Frame
		if err := json.Unmarshal(msg.Data, &f); err != nil {
			logger.Warnf("[natsx] bad bridge frame: %v", err)
			return
		}
		if f.Node == b.node {
			return
		}
		switch f.Scope {
		case ScopeUser:
			sink.DeliverUserLocal(f.Target, f.Payload)
		case ScopeRoom:
			sink.DeliverRoomLocal(f.Target, f.Payload)
		case ScopeAll:
			sink.DeliverAllLocal(f.Payload)
		default:
			logger.Warnf("[natsx] unknown scope=%s", f.Scope)
		}
	})
	if err != nil {
		return errs.WrapMsg(err, "subscribe bridge subject")
	}
	b.sub = sub
	return nil
}

func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.nc.Close()
}
