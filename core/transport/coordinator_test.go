package transport

import (
	"testing"

	"StemShare/model"
)

type fakeHandle struct {
	playing bool
	pos     float64
	gain    float64
	plays   int
	pauses  int
	seeks   []float64
	closed  bool
}

func (h *fakeHandle) Play()                  { h.playing = true; h.plays++ }
func (h *fakeHandle) Pause()                 { h.playing = false; h.pauses++ }
func (h *fakeHandle) Seek(seconds float64)   { h.pos = seconds; h.seeks = append(h.seeks, seconds) }
func (h *fakeHandle) SetVolume(gain float64) { h.gain = gain }
func (h *fakeHandle) CurrentTime() float64   { return h.pos }
func (h *fakeHandle) Close() error           { h.closed = true; return nil }

type manualTask struct{ canceled bool }

func (t *manualTask) Cancel() { t.canceled = true }

// manualScheduler 测试用调度器，由测试手动推进帧
type manualScheduler struct {
	fns   []func()
	tasks []*manualTask
}

func (s *manualScheduler) Every(fn func()) Task {
	t := &manualTask{}
	s.fns = append(s.fns, fn)
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) tick() {
	for i, fn := range s.fns {
		if !s.tasks[i].canceled {
			fn()
		}
	}
}

func (s *manualScheduler) active() int {
	n := 0
	for _, t := range s.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}

func newTestCoordinator(stems ...model.StemType) (*Coordinator, *manualScheduler, map[model.StemType]*fakeHandle) {
	sched := &manualScheduler{}
	c := NewCoordinator(sched, nil)
	handles := make(map[model.StemType]*fakeHandle)
	for _, s := range stems {
		h := &fakeHandle{}
		handles[s] = h
		c.Load(s, h)
	}
	return c, sched, handles
}

func TestReferenceIsFirstInFixedOrder(t *testing.T) {
	c, _, _ := newTestCoordinator(model.Other, model.Bass, model.Drums)
	ref, ok := c.Reference()
	if !ok || ref != model.Drums {
		t.Errorf("Reference() = %v, %v, want drums", ref, ok)
	}
	loaded := c.Loaded()
	want := []model.StemType{model.Drums, model.Bass, model.Other}
	for i := range want {
		if loaded[i] != want[i] {
			t.Errorf("Loaded()[%d] = %v, want %v", i, loaded[i], want[i])
		}
	}
}

func TestDurationIsRunningMax(t *testing.T) {
	c, _, _ := newTestCoordinator(model.Vocals, model.Drums)

	c.ReportDuration(model.Drums, 118.5)
	c.ReportDuration(model.Vocals, 120)
	c.ReportDuration(model.Drums, 119)
	if d := c.State().Duration; d != 120 {
		t.Errorf("Duration = %v, want 120", d)
	}

	// 未挂载分轨的上报被忽略
	c.ReportDuration(model.Piano, 300)
	if d := c.State().Duration; d != 120 {
		t.Errorf("Duration = %v after unloaded report, want 120", d)
	}
}

func TestPlayPauseFanOut(t *testing.T) {
	c, sched, handles := newTestCoordinator(model.Vocals, model.Bass, model.Piano)

	c.Play()
	if !c.State().IsPlaying {
		t.Fatal("IsPlaying = false after Play")
	}
	for s, h := range handles {
		if !h.playing {
			t.Errorf("%v not playing", s)
		}
	}
	if sched.active() != 1 {
		t.Fatalf("active samplers = %d, want 1", sched.active())
	}

	// 采样只读参考句柄
	handles[model.Vocals].pos = 3.5
	handles[model.Bass].pos = 9
	sched.tick()
	if ct := c.State().CurrentTime; ct != 3.5 {
		t.Errorf("CurrentTime = %v, want 3.5", ct)
	}

	// 重复 Play 不会启动第二个采样任务
	c.Play()
	if sched.active() != 1 {
		t.Errorf("active samplers = %d after second Play, want 1", sched.active())
	}

	c.Pause()
	if c.State().Status != Paused {
		t.Errorf("Status = %v, want paused", c.State().Status)
	}
	for s, h := range handles {
		if h.playing {
			t.Errorf("%v still playing after Pause", s)
		}
	}
	if sched.active() != 0 || c.Sampling() {
		t.Error("sampler should be cancelled after Pause")
	}
}

func TestPlayWithoutHandlesIsNoop(t *testing.T) {
	c, sched, _ := newTestCoordinator()
	c.Play()
	if c.State().IsPlaying || len(sched.fns) != 0 {
		t.Error("Play with no handles should do nothing")
	}
}

func TestSeekHalfwayRepositionsEveryHandle(t *testing.T) {
	c, _, handles := newTestCoordinator(model.Vocals, model.Drums, model.Other)
	c.ReportDuration(model.Vocals, 120)

	c.SeekFraction(0.5)

	if ct := c.State().CurrentTime; ct != 60 {
		t.Errorf("CurrentTime = %v, want 60", ct)
	}
	for s, h := range handles {
		if h.pos != 60 {
			t.Errorf("%v position = %v, want 60", s, h.pos)
		}
	}
}

func TestSeekClamps(t *testing.T) {
	c, _, handles := newTestCoordinator(model.Bass)
	c.ReportDuration(model.Bass, 100)

	c.Seek(250)
	if h := handles[model.Bass]; h.pos != 100 {
		t.Errorf("position = %v, want 100", h.pos)
	}
	c.Seek(-3)
	if h := handles[model.Bass]; h.pos != 0 {
		t.Errorf("position = %v, want 0", h.pos)
	}
	c.SeekFraction(1.7)
	if ct := c.State().CurrentTime; ct != 100 {
		t.Errorf("CurrentTime = %v, want 100", ct)
	}
}

func TestReferenceEndedResetsAllHandles(t *testing.T) {
	c, sched, handles := newTestCoordinator(model.Vocals, model.Drums, model.Guitar)
	c.ReportDuration(model.Drums, 120)
	c.Play()
	for _, h := range handles {
		h.pos = 119.9
	}
	sched.tick()

	if c.HandleEnded(model.Drums) {
		t.Fatal("non-reference ended signal should be ignored")
	}
	if !c.State().IsPlaying {
		t.Fatal("still expected to be playing")
	}

	if !c.HandleEnded(model.Vocals) {
		t.Fatal("reference ended signal should stop playback")
	}
	st := c.State()
	if st.Status != Stopped || st.CurrentTime != 0 {
		t.Errorf("State = %+v, want stopped at 0", st)
	}
	for s, h := range handles {
		if h.pos != 0 {
			t.Errorf("%v position = %v, want 0", s, h.pos)
		}
		if h.playing {
			t.Errorf("%v still playing", s)
		}
	}
	if sched.active() != 0 {
		t.Error("sampler should be cancelled at end of track")
	}
	// 时长不会因为结束而缩小
	if st.Duration != 120 {
		t.Errorf("Duration = %v, want 120", st.Duration)
	}
}

func TestSamplerCancelsItselfWhenNotPlaying(t *testing.T) {
	c, sched, _ := newTestCoordinator(model.Piano)
	c.Play()
	// 直接修改状态，模拟暂停信号之外的停止
	c.status = Paused
	sched.tick()
	if c.Sampling() || sched.active() != 0 {
		t.Error("sampler should cancel itself once playback is not active")
	}
}

func TestApplyGainsAndClose(t *testing.T) {
	c, sched, handles := newTestCoordinator(model.Vocals, model.Bass)
	var gains [model.NumStemTypes]float64
	gains[model.Vocals] = 0.25
	gains[model.Bass] = 0
	gains[model.Piano] = 1
	c.ApplyGains(gains)

	if g := handles[model.Vocals].gain; g != 0.25 {
		t.Errorf("vocals gain = %v, want 0.25", g)
	}
	if g := handles[model.Bass].gain; g != 0 {
		t.Errorf("bass gain = %v, want 0", g)
	}

	c.Play()
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for s, h := range handles {
		if !h.closed {
			t.Errorf("%v not closed", s)
		}
	}
	if sched.active() != 0 {
		t.Error("sampler should be cancelled on Close")
	}
	if len(c.Loaded()) != 0 {
		t.Error("handle table should be empty after Close")
	}
}

func TestOnChangeNotified(t *testing.T) {
	var states []State
	c := NewCoordinator(&manualScheduler{}, func(s State) { states = append(states, s) })
	c.Load(model.Drums, &fakeHandle{})
	c.ReportDuration(model.Drums, 10)
	c.Seek(4)
	if len(states) != 2 {
		t.Fatalf("notifications = %d, want 2", len(states))
	}
	if states[1].CurrentTime != 4 || states[1].Status != Paused {
		t.Errorf("last state = %+v", states[1])
	}
}

func TestSampleClampsToDuration(t *testing.T) {
	c, sched, handles := newTestCoordinator(model.Drums, model.Bass)
	c.ReportDuration(model.Bass, 120)
	c.Play()

	handles[model.Drums].pos = 120.5
	sched.tick()
	st := c.State()
	if !st.IsPlaying || st.CurrentTime != 120 {
		t.Errorf("State = %+v, want playing at 120", st)
	}
}

func TestSampleEndsWhenReferenceNeverSignals(t *testing.T) {
	c, sched, handles := newTestCoordinator(model.Drums, model.Bass)
	c.ReportDuration(model.Bass, 120)
	c.Play()

	handles[model.Drums].pos = 120 + EndGrace
	sched.tick()
	st := c.State()
	if st.Status != Stopped || st.CurrentTime != 0 {
		t.Errorf("State = %+v, want stopped at 0", st)
	}
	for s, h := range handles {
		if h.playing || h.pos != 0 {
			t.Errorf("%v playing = %v pos = %v, want paused at 0", s, h.playing, h.pos)
		}
	}
	if sched.active() != 0 {
		t.Error("sampler should be cancelled")
	}
}
