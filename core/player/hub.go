package player

import (
	"sync"

	"StemShare/logger"
)

// Hub 播放会话管理中心：登记活跃会话，按曲目统计，关闭服务时统一结束
type Hub struct {
	// 曲目 -> 会话集合
	tracks map[string]map[*Session]bool

	register   chan *Session
	unregister chan *Session

	mu   sync.RWMutex
	done chan struct{}
	once sync.Once
}

// NewHub 创建会话 Hub
func NewHub() *Hub {
	return &Hub{
		tracks:     make(map[string]map[*Session]bool),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.add(s)
		case s := <-h.unregister:
			h.remove(s)
		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub 并结束所有会话
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Register 登记会话
func (h *Hub) Register(s *Session) {
	select {
	case h.register <- s:
	case <-h.done:
		s.Close()
	}
}

// Unregister 注销会话
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Count 某个曲目当前的会话数，trackID 为空时返回全部会话数
func (h *Hub) Count(trackID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if trackID != "" {
		return len(h.tracks[trackID])
	}
	n := 0
	for _, sessions := range h.tracks {
		n += len(sessions)
	}
	return n
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tracks[s.TrackID] == nil {
		h.tracks[s.TrackID] = make(map[*Session]bool)
	}
	h.tracks[s.TrackID][s] = true

	logger.Debug("播放会话已登记",
		logger.String("session", s.ID),
		logger.String("trackId", s.TrackID),
		logger.Int("listeners", len(h.tracks[s.TrackID])))
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.tracks[s.TrackID]
	if !ok {
		return
	}
	delete(sessions, s)
	if len(sessions) == 0 {
		delete(h.tracks, s.TrackID)
	}
}

// cleanup 关闭所有会话
func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sessions := range h.tracks {
		for s := range sessions {
			s.Close()
		}
	}
	h.tracks = make(map[string]map[*Session]bool)
}
