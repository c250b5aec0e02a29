package server

import (
	"net/http"
	"time"

	"StemShare/core/player"
	"StemShare/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	playerReadLimit = 4096
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
)

var playerUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// playerConn websocket 连接加上读超时和写锁。
// 会话只在自己的 goroutine 里写，写锁只用于和心跳 ping 互斥。
type playerConn struct {
	*websocket.Conn
	writeMu chan struct{}
}

func newPlayerConn(c *websocket.Conn) *playerConn {
	c.SetReadLimit(playerReadLimit)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &playerConn{Conn: c, writeMu: make(chan struct{}, 1)}
}

func (c *playerConn) WriteJSON(v interface{}) error {
	c.writeMu <- struct{}{}
	defer func() { <-c.writeMu }()
	_ = c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.Conn.WriteJSON(v)
}

// ReadJSON 任何消息都刷新读超时
func (c *playerConn) ReadJSON(v interface{}) error {
	if err := c.Conn.ReadJSON(v); err != nil {
		return err
	}
	return c.SetReadDeadline(time.Now().Add(pongWait))
}

func (c *playerConn) ping() error {
	c.writeMu <- struct{}{}
	defer func() { <-c.writeMu }()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

// keepAlive 定期发送 ping，会话结束后退出
func (c *playerConn) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// PlayerSocketHandler GET /ws/player/{id}：为分享页建立播放器会话
func (s *Server) PlayerSocketHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, err := s.tracks.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("查询曲目失败", logger.String("trackId", id), logger.ErrorField(err))
		http.Error(w, "Failed to load track", http.StatusInternalServerError)
		return
	}
	if track == nil || !track.Shareable() {
		http.NotFound(w, r)
		return
	}

	ws, err := playerUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.String("trackId", id), logger.ErrorField(err))
		return
	}
	conn := newPlayerConn(ws)

	session := player.NewSession(track, conn, player.Options{FrameInterval: s.cfg.FrameInterval})
	s.hub.Register(session)
	defer s.hub.Unregister(session)

	go conn.keepAlive(session.Done())

	if err := session.Run(s.baseCtx); err != nil && s.baseCtx.Err() == nil {
		logger.Warn("播放会话异常结束",
			logger.String("session", session.ID),
			logger.String("trackId", id),
			logger.ErrorField(err))
	}
}
