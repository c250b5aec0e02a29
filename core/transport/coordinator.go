package transport

import (
	"math"

	"StemShare/model"
)

// EndGrace 参考句柄的位置越过总时长这么多秒仍没有结束信号时，按播放结束处理
const EndGrace = 1.0

// Coordinator 多分轨走带协调器。
//
// 它独占分轨类型到媒体句柄的映射表：所有走带命令在一次遍历中按固定顺序下发给每个句柄，
// 时间显示只读取参考句柄（固定顺序中第一个存在的分轨）。句柄之间的漂移取决于各自的解码后端，
// 这里不做校正。Coordinator 不是并发安全的，必须在同一个 goroutine 上使用。
type Coordinator struct {
	handles [model.NumStemTypes]Handle

	status      Status
	currentTime float64
	duration    float64

	sched    Scheduler
	sampler  Task
	onChange func(State)
}

// NewCoordinator 创建协调器，onChange 在状态或当前时间变化后被调用（可为 nil）
func NewCoordinator(sched Scheduler, onChange func(State)) *Coordinator {
	return &Coordinator{sched: sched, onChange: onChange}
}

// Load 为某个分轨挂载媒体句柄，已有句柄会被关闭替换
func (c *Coordinator) Load(stem model.StemType, h Handle) {
	if !stem.Valid() || h == nil {
		return
	}
	if old := c.handles[stem]; old != nil {
		_ = old.Close()
	}
	c.handles[stem] = h
}

// Loaded 按固定顺序返回已挂载的分轨
func (c *Coordinator) Loaded() []model.StemType {
	stems := make([]model.StemType, 0, model.NumStemTypes)
	for _, s := range model.StemOrder {
		if c.handles[s] != nil {
			stems = append(stems, s)
		}
	}
	return stems
}

// Reference 参考句柄对应的分轨
func (c *Coordinator) Reference() (model.StemType, bool) {
	for _, s := range model.StemOrder {
		if c.handles[s] != nil {
			return s, true
		}
	}
	return 0, false
}

// State 当前走带状态
func (c *Coordinator) State() State {
	return State{
		Status:      c.status,
		IsPlaying:   c.status == Playing,
		CurrentTime: c.currentTime,
		Duration:    c.duration,
	}
}

// Sampling 进度采样任务是否仍在调度中
func (c *Coordinator) Sampling() bool {
	return c.sampler != nil
}

// ReportDuration 某个句柄上报了解码后的时长。总时长取所有上报的最大值，只增不减。
func (c *Coordinator) ReportDuration(stem model.StemType, seconds float64) {
	if !stem.Valid() || c.handles[stem] == nil {
		return
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= c.duration {
		return
	}
	c.duration = seconds
	c.notify()
}

// Play 向所有句柄下发播放命令并启动进度采样
func (c *Coordinator) Play() {
	if c.status == Playing {
		return
	}
	if _, ok := c.Reference(); !ok {
		return
	}
	c.each(func(h Handle) { h.Play() })
	c.status = Playing
	c.startSampler()
	c.notify()
}

// Pause 向所有句柄下发暂停命令并停止进度采样
func (c *Coordinator) Pause() {
	if c.status != Playing {
		return
	}
	c.each(func(h Handle) { h.Pause() })
	c.stopSampler()
	c.status = Paused
	if ref := c.reference(); ref != nil {
		c.currentTime = ref.CurrentTime()
	}
	c.notify()
}

// Toggle 播放/暂停切换
func (c *Coordinator) Toggle() {
	if c.status == Playing {
		c.Pause()
		return
	}
	c.Play()
}

// Seek 把所有句柄定位到同一时间点，并立即更新共享的当前时间（不等句柄确认）
func (c *Coordinator) Seek(seconds float64) {
	if math.IsNaN(seconds) {
		return
	}
	seconds = math.Max(0, math.Min(seconds, c.duration))
	c.each(func(h Handle) { h.Seek(seconds) })
	c.currentTime = seconds
	if c.status == Stopped && seconds > 0 {
		c.status = Paused
	}
	c.notify()
}

// SeekFraction 按进度条点击比例跳转：fraction * duration
func (c *Coordinator) SeekFraction(fraction float64) {
	if math.IsNaN(fraction) {
		return
	}
	fraction = math.Max(0, math.Min(fraction, 1))
	c.Seek(fraction * c.duration)
}

// HandleEnded 句柄播放结束。只有参考句柄的结束信号有效：
// 回到 Stopped，共享时间归零，并把每一个句柄（不只是参考句柄）都定位回 0，避免重播时漂移。
func (c *Coordinator) HandleEnded(stem model.StemType) bool {
	ref, ok := c.Reference()
	if !ok || stem != ref {
		return false
	}
	c.stopSampler()
	c.each(func(h Handle) {
		h.Pause()
		h.Seek(0)
	})
	c.status = Stopped
	c.currentTime = 0
	c.notify()
	return true
}

// ApplyGains 把混音增益下发给每个已挂载的句柄
func (c *Coordinator) ApplyGains(gains [model.NumStemTypes]float64) {
	for _, s := range model.StemOrder {
		if h := c.handles[s]; h != nil {
			h.SetVolume(gains[s])
		}
	}
}

// Close 停止采样并释放所有句柄
func (c *Coordinator) Close() error {
	c.stopSampler()
	var firstErr error
	for i, h := range c.handles {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.handles[i] = nil
	}
	c.status = Stopped
	c.currentTime = 0
	return firstErr
}

func (c *Coordinator) reference() Handle {
	if s, ok := c.Reference(); ok {
		return c.handles[s]
	}
	return nil
}

func (c *Coordinator) each(fn func(Handle)) {
	for _, s := range model.StemOrder {
		if h := c.handles[s]; h != nil {
			fn(h)
		}
	}
}

func (c *Coordinator) startSampler() {
	c.stopSampler()
	if c.sched == nil {
		return
	}
	c.sampler = c.sched.Every(c.sample)
}

func (c *Coordinator) stopSampler() {
	if c.sampler != nil {
		c.sampler.Cancel()
		c.sampler = nil
	}
}

// sample 每帧读取参考句柄的位置并发布，发布的时间不超过总时长；不在播放状态时取消自己。
// 参考句柄一直收不到结束信号时，越过总时长 EndGrace 秒后同样复位。
func (c *Coordinator) sample() {
	ref := c.reference()
	if c.status != Playing || ref == nil {
		c.stopSampler()
		return
	}
	t := ref.CurrentTime()
	if c.duration > 0 {
		if t >= c.duration+EndGrace {
			stem, _ := c.Reference()
			c.HandleEnded(stem)
			return
		}
		t = math.Min(t, c.duration)
	}
	c.currentTime = t
	c.notify()
}

func (c *Coordinator) notify() {
	if c.onChange != nil {
		c.onChange(c.State())
	}
}
