package player

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StemShare/core/transport"
	"StemShare/model"
)

type fakeConn struct {
	in        chan ClientMessage
	out       chan interface{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan ClientMessage),
		out:    make(chan interface{}, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadJSON(v interface{}) error {
	select {
	case msg := <-c.in:
		*v.(*ClientMessage) = msg
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.out <- v
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// frameScheduler 把采样函数交给测试，测试通过 Session.post 在会话循环里执行一帧
type frameScheduler struct {
	started chan func()
}

func (f *frameScheduler) Every(fn func()) transport.Task {
	f.started <- fn
	return nopTask{}
}

// testClock 会话 goroutine 和测试 goroutine 共用的时钟
type testClock struct {
	nanos atomic.Int64
}

func (c *testClock) Now() time.Time { return time.Unix(0, c.nanos.Load()) }

func (c *testClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

type nopScheduler struct{}

type nopTask struct{}

func (nopTask) Cancel() {}

func (nopScheduler) Every(func()) transport.Task { return nopTask{} }

func stemPtr(s model.StemType) *model.StemType { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func testTrack() *model.Track {
	tr := &model.Track{ID: "abc123defg", Title: "Song"}
	tr.SetStemURL(model.Drums, "http://localhost/stems/abc123defg/drums.wav")
	tr.SetStemURL(model.Vocals, "http://localhost/stems/abc123defg/vocals.wav")
	tr.SetStemURL(model.Other, "http://localhost/stems/abc123defg/other.mp3")
	return tr
}

func startSession(t *testing.T) (*Session, *fakeConn) {
	t.Helper()
	return startSessionWith(t, Options{Scheduler: nopScheduler{}})
}

func startSessionWith(t *testing.T, opts Options) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	s := NewSession(testTrack(), conn, opts)

	errc := make(chan error, 1)
	go func() { errc <- s.Run(context.Background()) }()
	t.Cleanup(func() {
		s.Close()
		select {
		case <-errc:
		case <-time.After(time.Second):
			t.Error("session did not stop")
		}
	})

	// 初始增益和状态
	cmds := nextCommands(t, conn)
	if len(cmds) != 3 {
		t.Fatalf("initial commands = %d, want 3", len(cmds))
	}
	for _, c := range cmds {
		if c.Op != OpVolume || c.Value != 1 {
			t.Errorf("initial command = %+v, want volume 1", c)
		}
	}
	nextState(t, conn)
	return s, conn
}

func next(t *testing.T, conn *fakeConn) interface{} {
	t.Helper()
	select {
	case v := <-conn.out:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for server message")
		return nil
	}
}

func nextCommands(t *testing.T, conn *fakeConn) []Command {
	t.Helper()
	v := next(t, conn)
	msg, ok := v.(CommandsMessage)
	if !ok {
		t.Fatalf("got %T, want CommandsMessage", v)
	}
	return msg.Commands
}

func nextState(t *testing.T, conn *fakeConn) StateMessage {
	t.Helper()
	v := next(t, conn)
	msg, ok := v.(StateMessage)
	if !ok {
		t.Fatalf("got %T, want StateMessage", v)
	}
	return msg
}

func TestSessionPlayFansOutInFixedOrder(t *testing.T) {
	_, conn := startSession(t)

	conn.in <- ClientMessage{Type: MsgToggle}
	cmds := nextCommands(t, conn)
	want := []model.StemType{model.Vocals, model.Drums, model.Other}
	if len(cmds) != len(want) {
		t.Fatalf("commands = %+v", cmds)
	}
	for i, c := range cmds {
		if c.Stem != want[i] || c.Op != OpPlay {
			t.Errorf("command[%d] = %+v, want play %v", i, c, want[i])
		}
	}
	if st := nextState(t, conn); !st.IsPlaying {
		t.Error("state should report playing")
	}
}

func TestSessionSeekHalfway(t *testing.T) {
	_, conn := startSession(t)

	conn.in <- ClientMessage{Type: MsgLoaded, Stem: stemPtr(model.Drums), Duration: 120}
	if st := nextState(t, conn); st.Duration != 120 {
		t.Fatalf("duration = %v, want 120", st.Duration)
	}

	conn.in <- ClientMessage{Type: MsgSeek, Fraction: floatPtr(0.5)}
	cmds := nextCommands(t, conn)
	if len(cmds) != 3 {
		t.Fatalf("seek commands = %d, want 3", len(cmds))
	}
	for _, c := range cmds {
		if c.Op != OpSeek || c.Value != 60 {
			t.Errorf("command = %+v, want seek 60", c)
		}
	}
	if st := nextState(t, conn); st.CurrentTime != 60 {
		t.Errorf("currentTime = %v, want 60", st.CurrentTime)
	}
}

func TestSessionSoloSilencesOthers(t *testing.T) {
	_, conn := startSession(t)

	conn.in <- ClientMessage{Type: MsgVolume, Stem: stemPtr(model.Drums), Volume: intPtr(50)}
	nextCommands(t, conn)
	nextState(t, conn)

	conn.in <- ClientMessage{Type: MsgSolo, Stem: stemPtr(model.Drums)}
	cmds := nextCommands(t, conn)
	for _, c := range cmds {
		want := 0.0
		if c.Stem == model.Drums {
			want = 0.5
		}
		if c.Op != OpVolume || c.Value != want {
			t.Errorf("command = %+v, want volume %v", c, want)
		}
	}
	st := nextState(t, conn)
	for _, v := range st.Stems {
		if v.EffectivelyMuted != (v.Stem != model.Drums) {
			t.Errorf("stem %v effectivelyMuted = %v", v.Stem, v.EffectivelyMuted)
		}
	}
}

func TestSessionReferenceEndedResetsEveryStem(t *testing.T) {
	_, conn := startSession(t)

	conn.in <- ClientMessage{Type: MsgPlay}
	nextCommands(t, conn)
	nextState(t, conn)

	// drums 不是参考分轨，结束信号被忽略
	conn.in <- ClientMessage{Type: MsgEnded, Stem: stemPtr(model.Drums)}
	conn.in <- ClientMessage{Type: MsgEnded, Stem: stemPtr(model.Vocals)}

	cmds := nextCommands(t, conn)
	seeks := map[model.StemType]float64{}
	for _, c := range cmds {
		if c.Op == OpSeek {
			seeks[c.Stem] = c.Value
		}
	}
	for _, stem := range []model.StemType{model.Vocals, model.Drums, model.Other} {
		v, ok := seeks[stem]
		if !ok || v != 0 {
			t.Errorf("stem %v not reset to 0 (%v, %v)", stem, v, ok)
		}
	}
	st := nextState(t, conn)
	if st.IsPlaying || st.CurrentTime != 0 {
		t.Errorf("state = %+v, want stopped at 0", st)
	}
}

func TestSessionRejectsUnknownStem(t *testing.T) {
	_, conn := startSession(t)

	conn.in <- ClientMessage{Type: MsgMute, Stem: stemPtr(model.Piano)}
	v := next(t, conn)
	msg, ok := v.(ErrorMessage)
	if !ok {
		t.Fatalf("got %T, want ErrorMessage", v)
	}
	if msg.Message != errUnknownStem.Error() {
		t.Errorf("error = %q", msg.Message)
	}

	conn.in <- ClientMessage{Type: "rewind"}
	if _, ok := next(t, conn).(ErrorMessage); !ok {
		t.Error("unknown message type should produce an error message")
	}
}

func TestRemoteHandleExtrapolatesWhilePlaying(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	var emitted []Command
	h := newRemoteHandle(model.Bass, func(c Command) { emitted = append(emitted, c) }, clock)

	h.Seek(10)
	h.Play()
	now = now.Add(1500 * time.Millisecond)
	if got := h.CurrentTime(); got != 11.5 {
		t.Errorf("CurrentTime = %v, want 11.5", got)
	}

	h.report(11)
	now = now.Add(500 * time.Millisecond)
	if got := h.CurrentTime(); got != 11.5 {
		t.Errorf("CurrentTime after report = %v, want 11.5", got)
	}

	h.Pause()
	now = now.Add(time.Second)
	if got := h.CurrentTime(); got != 11.5 {
		t.Errorf("CurrentTime while paused = %v, want 11.5", got)
	}

	if len(emitted) != 3 || emitted[0].Op != OpSeek || emitted[1].Op != OpPlay || emitted[2].Op != OpPause {
		t.Errorf("emitted = %+v", emitted)
	}

	_ = h.Close()
	h.Play()
	if len(emitted) != 3 {
		t.Error("closed handle should not emit commands")
	}
}

func startFramedSession(t *testing.T) (*Session, *fakeConn, *testClock, func()) {
	t.Helper()
	clock := &testClock{}
	clock.nanos.Store(time.Unix(1000, 0).UnixNano())
	sched := &frameScheduler{started: make(chan func(), 4)}
	s, conn := startSessionWith(t, Options{Scheduler: sched, Now: clock.Now})

	conn.in <- ClientMessage{Type: MsgLoaded, Stem: stemPtr(model.Drums), Duration: 120}
	nextState(t, conn)
	conn.in <- ClientMessage{Type: MsgPlay}
	nextCommands(t, conn)
	nextState(t, conn)

	var frame func()
	select {
	case frame = <-sched.started:
	case <-time.After(time.Second):
		t.Fatal("sampler not started")
	}
	return s, conn, clock, func() { s.post(frame) }
}

func TestSessionCoalescesFrameStates(t *testing.T) {
	_, conn, clock, tick := startFramedSession(t)

	// 不足一个显示刻度的帧不推送状态
	for i := 0; i < 2; i++ {
		clock.Advance(20 * time.Millisecond)
		tick()
	}
	clock.Advance(460 * time.Millisecond)
	tick()

	st := nextState(t, conn)
	if st.CurrentTime < 0.45 || st.CurrentTime > 0.55 {
		t.Errorf("currentTime = %v, want about 0.5", st.CurrentTime)
	}
	select {
	case v := <-conn.out:
		t.Errorf("unexpected message %+v", v)
	default:
	}
}

func TestSessionEndsWhenReferenceNeverReports(t *testing.T) {
	_, conn, clock, tick := startFramedSession(t)

	clock.Advance(time.Duration((120 + transport.EndGrace) * float64(time.Second)))
	tick()

	cmds := nextCommands(t, conn)
	paused := map[model.StemType]bool{}
	for _, c := range cmds {
		if c.Op == OpPause {
			paused[c.Stem] = true
		}
		if c.Op == OpSeek && c.Value != 0 {
			t.Errorf("command = %+v, want seek 0", c)
		}
	}
	if len(paused) != 3 {
		t.Errorf("paused stems = %v, want all 3", paused)
	}
	if st := nextState(t, conn); st.IsPlaying || st.CurrentTime != 0 {
		t.Errorf("state = %+v, want stopped at 0", st)
	}
}
