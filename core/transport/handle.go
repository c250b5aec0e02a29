// Package transport 把多个独立加载的分轨媒体句柄作为一个虚拟走带来驱动：
// 播放、暂停、跳转、播放结束复位，以及把混音增益下发到每个句柄。
package transport

// Handle 单个分轨的媒体句柄（浏览器里的 audio 元素、测试里的假对象等）。
// 句柄只由 Coordinator 修改。
type Handle interface {
	Play()
	Pause()
	Seek(seconds float64)
	SetVolume(gain float64)
	// CurrentTime 当前播放位置（秒）
	CurrentTime() float64
	Close() error
}

// Status 走带状态
type Status int

const (
	Stopped Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// State 共享的走带状态快照
type State struct {
	Status      Status  `json:"-"`
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}
