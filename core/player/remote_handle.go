package player

import (
	"time"

	"StemShare/model"
)

// remoteHandle 页面上某个 audio 元素在服务端的代理。
// 命令写入会话的待发送批次；播放位置来自页面上报，播放中用单调时钟外推。
type remoteHandle struct {
	stem    model.StemType
	emit    func(Command)
	now     func() time.Time
	playing bool
	pos     float64
	at      time.Time
	closed  bool
}

func newRemoteHandle(stem model.StemType, emit func(Command), now func() time.Time) *remoteHandle {
	return &remoteHandle{stem: stem, emit: emit, now: now, at: now()}
}

func (h *remoteHandle) Play() {
	if h.closed {
		return
	}
	h.pos = h.CurrentTime()
	h.at = h.now()
	h.playing = true
	h.emit(Command{Stem: h.stem, Op: OpPlay})
}

func (h *remoteHandle) Pause() {
	if h.closed {
		return
	}
	h.pos = h.CurrentTime()
	h.at = h.now()
	h.playing = false
	h.emit(Command{Stem: h.stem, Op: OpPause})
}

func (h *remoteHandle) Seek(seconds float64) {
	if h.closed {
		return
	}
	h.pos = seconds
	h.at = h.now()
	h.emit(Command{Stem: h.stem, Op: OpSeek, Value: seconds})
}

func (h *remoteHandle) SetVolume(gain float64) {
	if h.closed {
		return
	}
	h.emit(Command{Stem: h.stem, Op: OpVolume, Value: gain})
}

func (h *remoteHandle) CurrentTime() float64 {
	if !h.playing {
		return h.pos
	}
	return h.pos + h.now().Sub(h.at).Seconds()
}

// report 页面上报的真实播放位置
func (h *remoteHandle) report(seconds float64) {
	h.pos = seconds
	h.at = h.now()
}

func (h *remoteHandle) Close() error {
	h.closed = true
	h.playing = false
	return nil
}
