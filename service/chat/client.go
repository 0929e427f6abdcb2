package chat

import (
	"sync"
	"time"

	"PairChat/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 1 << 20 // 1MB
)

// Client represents one websocket session attached to the gateway.
// A single user may hold multiple connections, each maintained separately.
type Client struct {
	ConnID string          // Unique connection ID (unique within the local gateway)
	UserID string          // User ID (set by the registerUser event; empty before that)
	WS     *websocket.Conn // WebSocket connection object (nil in tests)
	Send   chan []byte     // Outbound queue (consumed by a single writer goroutine)

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient creates a new client connection object.
func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue 尝试投递；慢客户端丢帧（由 fanout 统一口径）。
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the writer pump. Safe to call multiple times.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// WriteLoop 独占写协程：排空 Send 队列并按周期发 ping。
// 写失败即退出，由读循环一侧负责注销连接。
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("write failed, closing conn")
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
