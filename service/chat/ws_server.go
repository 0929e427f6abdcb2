package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"PairChat/logger"
	"PairChat/tools/ids"
	"PairChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS ===== WebSocket 入口 =====
// 连接建立即登记（此时未注册用户），读循环逐帧分发；
// 读循环退出统一做：退房、注销、广播在线列表、关写协程。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, 256)
	s.connMgr.Attach(client)
	go client.WriteLoop()

	logger.Infof("[HandleWS] socket connected conn=%s remote=%s", client.ConnID, ws.RemoteAddr())

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	// ---- 读循环：只读不写；出错即退出（写协程收尾） ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s err=%v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] parse frame err conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		h := s.disp.GetHandler(frame.Event)
		if h == nil {
			continue
		}
		// 失败只终结当前这一个事件，绝不让连接陪葬
		if herr := h.Handle(&Context{S: s}, frame, client); herr != nil {
			logger.Warnf("[WS] handle event=%s conn=%s err: %v", frame.Event, client.ConnID, herr)
		}
	}

	// ---- 退出阶段 ----
	s.Disconnect(client)
}

// Disconnect 断开收尾：清活跃房间、摘在线表、同步镜像、广播在线列表。
// 重复断开信号安全。
func (s *Server) Disconnect(client *Client) {
	userID := s.connMgr.Detach(client.ConnID)
	client.Close()

	if userID != "" && s.presence != nil && !s.connMgr.IsOnline(userID) {
		p := s.presence
		safe.SafeGo(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := p.Offline(ctx, userID); err != nil {
				logger.Warnf("[presence] offline user=%s err: %v", userID, err)
			}
		})
	}

	logger.Infof("[HandleWS] socket disconnected conn=%s user=%s", client.ConnID, userID)
	s.BroadcastOnline()
}
