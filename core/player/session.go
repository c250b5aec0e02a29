package player

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"StemShare/core/mixer"
	"StemShare/core/transport"
	"StemShare/logger"
	"StemShare/model"

	"github.com/google/uuid"
)

// Conn 会话使用的 JSON 连接，*websocket.Conn 满足该接口
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// Session 一个分享页播放器会话。
// 所有对协调器、混音台、句柄的访问都发生在 Run 所在的 goroutine 上。
type Session struct {
	ID      string
	TrackID string

	track   *model.Track
	conn    Conn
	board   *mixer.Board
	coord   *transport.Coordinator
	handles [model.NumStemTypes]*remoteHandle

	pending []Command
	dirty   bool
	sent    *StateMessage
	now     func() time.Time

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// Options 会话参数
type Options struct {
	FrameInterval time.Duration
	// Scheduler 为空时使用基于 FrameInterval 的帧调度器
	Scheduler transport.Scheduler
	Now       func() time.Time
}

// NewSession 为曲目创建播放器会话，每个有地址的分轨挂载一个远程句柄
func NewSession(track *model.Track, conn Conn, opts Options) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		TrackID: track.ID,
		track:   track,
		conn:    conn,
		board:   mixer.NewBoard(),
		now:     opts.Now,
		events:  make(chan func(), 16),
		done:    make(chan struct{}),
	}
	if s.now == nil {
		s.now = time.Now
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = transport.NewFrameScheduler(opts.FrameInterval, s.post)
	}
	s.coord = transport.NewCoordinator(sched, func(transport.State) { s.dirty = true })

	for _, stem := range track.AvailableStems() {
		h := newRemoteHandle(stem, s.emit, s.now)
		s.handles[stem] = h
		s.coord.Load(stem, h)
	}
	return s
}

// post 把任务投递到会话事件循环；会话结束后丢弃
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

func (s *Session) emit(cmd Command) {
	s.pending = append(s.pending, cmd)
}

// Close 结束会话（可重复调用）
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Done 会话结束信号
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run 运行会话事件循环，直到连接断开、ctx 取消或 Close 被调用
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()
	defer func() {
		if err := s.coord.Close(); err != nil {
			logger.Warn("释放播放句柄失败", logger.String("session", s.ID), logger.ErrorField(err))
		}
	}()

	inbox := make(chan ClientMessage)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg ClientMessage
			if err := s.conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			select {
			case inbox <- msg:
			case <-s.done:
				return
			}
		}
	}()

	logger.Info("播放会话开始",
		logger.String("session", s.ID),
		logger.String("trackId", s.TrackID),
		logger.Int("stems", len(s.coord.Loaded())))

	// 初始增益和状态
	s.coord.ApplyGains(s.board.Gains())
	s.dirty = true
	if err := s.flush(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case err := <-readErr:
			logger.Info("播放会话结束",
				logger.String("session", s.ID),
				logger.String("trackId", s.TrackID),
				logger.String("reason", err.Error()))
			return nil
		case msg := <-inbox:
			if err := s.handle(msg); err != nil {
				logger.Warn("无效的播放器消息",
					logger.String("session", s.ID),
					logger.String("type", msg.Type),
					logger.ErrorField(err))
				if werr := s.conn.WriteJSON(ErrorMessage{Type: MsgError, Message: err.Error()}); werr != nil {
					return werr
				}
			}
		case fn := <-s.events:
			fn()
		}
		if err := s.flush(); err != nil {
			return err
		}
	}
}

var (
	errMissingStem  = errors.New("stem is required")
	errUnknownStem  = errors.New("stem is not part of this track")
	errMissingValue = errors.New("value is required")
	errUnknownType  = errors.New("unknown message type")
)

// handle 处理一条页面消息
func (s *Session) handle(msg ClientMessage) error {
	switch msg.Type {
	case MsgPlay:
		s.coord.Play()
	case MsgPause:
		s.coord.Pause()
	case MsgToggle:
		s.coord.Toggle()
	case MsgSeek:
		switch {
		case msg.Fraction != nil:
			s.coord.SeekFraction(*msg.Fraction)
		case msg.Time != nil:
			s.coord.Seek(*msg.Time)
		default:
			return errMissingValue
		}
	case MsgLoaded, MsgPosition, MsgEnded:
		h, err := s.handleFor(msg.Stem)
		if err != nil {
			return err
		}
		switch msg.Type {
		case MsgLoaded:
			s.coord.ReportDuration(h.stem, msg.Duration)
		case MsgPosition:
			if msg.Time == nil {
				return errMissingValue
			}
			h.report(*msg.Time)
		case MsgEnded:
			if s.coord.HandleEnded(h.stem) {
				logger.Debug("参考分轨播放结束，已复位",
					logger.String("session", s.ID),
					logger.String("stem", h.stem.String()))
			}
		}
	case MsgVolume, MsgMute, MsgSolo:
		h, err := s.handleFor(msg.Stem)
		if err != nil {
			return err
		}
		switch msg.Type {
		case MsgVolume:
			if msg.Volume == nil {
				return errMissingValue
			}
			s.board.SetVolume(h.stem, *msg.Volume)
		case MsgMute:
			s.board.ToggleMute(h.stem)
		case MsgSolo:
			s.board.ToggleSolo(h.stem)
		}
		// 任何一个分轨变化都重新计算并下发全部增益
		s.coord.ApplyGains(s.board.Gains())
		s.dirty = true
	default:
		return errUnknownType
	}
	return nil
}

func (s *Session) handleFor(stem *model.StemType) (*remoteHandle, error) {
	if stem == nil {
		return nil, errMissingStem
	}
	if !stem.Valid() || s.handles[*stem] == nil {
		return nil, errUnknownStem
	}
	return s.handles[*stem], nil
}

// flush 先发送本轮累积的命令批次，再发送变化后的状态
func (s *Session) flush() error {
	if len(s.pending) > 0 {
		msg := CommandsMessage{Type: MsgCommands, Commands: s.pending}
		s.pending = nil
		if err := s.conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	if !s.dirty {
		return nil
	}
	s.dirty = false
	snap := s.snapshot()
	// 采样按帧进行，但时间变化不足一个显示刻度时不重复推送
	if s.sent != nil && sameView(*s.sent, snap) {
		return nil
	}
	s.sent = &snap
	return s.conn.WriteJSON(snap)
}

// stateTimeStep 推送给页面的时间精度（秒）
const stateTimeStep = 0.1

func sameView(a, b StateMessage) bool {
	if a.IsPlaying != b.IsPlaying || a.Duration != b.Duration || len(a.Stems) != len(b.Stems) {
		return false
	}
	if math.Round(a.CurrentTime/stateTimeStep) != math.Round(b.CurrentTime/stateTimeStep) {
		return false
	}
	for i := range a.Stems {
		if a.Stems[i] != b.Stems[i] {
			return false
		}
	}
	return true
}

// snapshot 当前走带和混音台状态
func (s *Session) snapshot() StateMessage {
	st := s.coord.State()
	msg := StateMessage{
		Type:        MsgState,
		IsPlaying:   st.IsPlaying,
		CurrentTime: st.CurrentTime,
		Duration:    st.Duration,
		Stems:       make([]StemView, 0, model.NumStemTypes),
	}
	for _, stem := range s.coord.Loaded() {
		msg.Stems = append(msg.Stems, StemView{
			Stem:             stem,
			State:            s.board.State(stem),
			EffectivelyMuted: s.board.EffectivelyMuted(stem),
		})
	}
	return msg
}
