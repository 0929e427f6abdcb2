package chat

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler 单测用：把收到的 data 原样回发到发起连接。
type echoHandler struct{}

func (echoHandler) Event() string { return "echo" }
func (echoHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	var msg string
	if err := f.Bind(&msg); err != nil {
		return err
	}
	ctx.S.EmitToConn(c, "echo", msg)
	return nil
}

func dialTestServer(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", s.HandleWS)
	srv := httptest.NewServer(r)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return ws, func() {
		_ = ws.Close()
		srv.Close()
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) *Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)
	f, err := ParseFrame(raw)
	require.NoError(t, err)
	return f
}

func TestWebSocketRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)
	s.Disp().Register(echoHandler{})

	ws, done := dialTestServer(t, s)
	defer done()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"echo","data":"ping"}`)))

	f := readFrame(t, ws)
	assert.Equal(t, "echo", f.Event)
	var msg string
	require.NoError(t, f.Bind(&msg))
	assert.Equal(t, "ping", msg)
}

func TestWebSocketMalformedFrameKeepsConnection(t *testing.T) {
	s, _ := newTestServer(t)
	s.Disp().Register(echoHandler{})

	ws, done := dialTestServer(t, s)
	defer done()

	// 坏帧与未知事件都只丢弃，连接继续可用
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"nobody"}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"echo","data":"still alive"}`)))

	f := readFrame(t, ws)
	var msg string
	require.NoError(t, f.Bind(&msg))
	assert.Equal(t, "still alive", msg)
}

func TestDisconnectCleansRegistry(t *testing.T) {
	s, _ := newTestServer(t)

	c := NewClient("c1", nil, 8)
	s.ConnMgr().Attach(c)
	s.ConnMgr().BindUser("c1", "alice")
	s.ConnMgr().JoinRoom("c1", "room1")

	s.Disconnect(c)

	assert.False(t, s.ConnMgr().IsOnline("alice"))
	assert.Empty(t, s.ConnMgr().RoomClients("room1"))

	// 重复断开安全
	s.Disconnect(c)
}
