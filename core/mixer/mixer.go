// Package mixer 实现分轨的音量/静音/独奏混音策略。
package mixer

import "StemShare/model"

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = MaxVolume
)

// State 单个分轨的播放端状态，只在页面生命周期内存在
type State struct {
	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`
	Solo   bool `json:"solo"`
}

// DefaultState 加载播放器时每个分轨的初始状态
func DefaultState() State {
	return State{Volume: DefaultVolume}
}

// EffectiveGain 计算分轨最终的 0-1 增益。
// 只要有任何分轨处于独奏，就只看独奏标记（静音标记被忽略）；否则只看静音标记。
func EffectiveGain(s State, anySolo bool) float64 {
	audible := !s.Muted
	if anySolo {
		audible = s.Solo
	}
	if !audible {
		return 0
	}
	return float64(clampVolume(s.Volume)) / MaxVolume
}

func clampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// Board 六个固定槽位的混音台状态
type Board struct {
	states [model.NumStemTypes]State
}

// NewBoard 所有分轨初始化为 {100, false, false}
func NewBoard() *Board {
	b := &Board{}
	for i := range b.states {
		b.states[i] = DefaultState()
	}
	return b
}

// State 返回某个分轨的当前状态
func (b *Board) State(s model.StemType) State {
	if !s.Valid() {
		return State{}
	}
	return b.states[s]
}

// SetVolume 设置音量，超出 0-100 的值会被截断
func (b *Board) SetVolume(s model.StemType, volume int) {
	if !s.Valid() {
		return
	}
	b.states[s].Volume = clampVolume(volume)
}

// ToggleMute 切换静音，同时清除该分轨的独奏
func (b *Board) ToggleMute(s model.StemType) {
	if !s.Valid() {
		return
	}
	b.states[s].Muted = !b.states[s].Muted
	b.states[s].Solo = false
}

// ToggleSolo 切换该分轨的独奏，其它分轨的独奏全部清除（同一时刻最多一个独奏）
func (b *Board) ToggleSolo(s model.StemType) {
	if !s.Valid() {
		return
	}
	next := !b.states[s].Solo
	for i := range b.states {
		b.states[i].Solo = false
	}
	b.states[s].Solo = next
}

// AnySolo 是否有分轨处于独奏
func (b *Board) AnySolo() bool {
	for _, st := range b.states {
		if st.Solo {
			return true
		}
	}
	return false
}

// Gains 重新计算全部六个分轨的增益。任何一个分轨变化都可能影响其它分轨，所以总是整体重算。
func (b *Board) Gains() [model.NumStemTypes]float64 {
	var gains [model.NumStemTypes]float64
	anySolo := b.AnySolo()
	for i, st := range b.states {
		gains[i] = EffectiveGain(st, anySolo)
	}
	return gains
}

// EffectivelyMuted 页面渲染用：该分轨当前是否听不到（不考虑音量为 0 的情况）
func (b *Board) EffectivelyMuted(s model.StemType) bool {
	if !s.Valid() {
		return true
	}
	if b.AnySolo() {
		return !b.states[s].Solo
	}
	return b.states[s].Muted
}
