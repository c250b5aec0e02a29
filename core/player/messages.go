// Package player 通过 WebSocket 驱动分享页上的多分轨播放器。
//
// 浏览器负责真正的 audio 元素；服务端为每个页面会话维护一个走带协调器和混音台，
// 把走带命令按批次下发给页面，页面上报时长、播放位置和结束事件。
package player

import (
	"StemShare/core/mixer"
	"StemShare/model"
)

// 客户端 -> 服务端消息类型
const (
	MsgLoaded   = "loaded"   // 某个分轨元数据加载完成，附带时长
	MsgPosition = "position" // 某个分轨的播放位置
	MsgEnded    = "ended"    // 某个分轨播放结束
	MsgPlay     = "play"
	MsgPause    = "pause"
	MsgToggle   = "toggle"
	MsgSeek     = "seek"
	MsgVolume   = "volume"
	MsgMute     = "mute"
	MsgSolo     = "solo"
)

// 服务端 -> 客户端消息类型
const (
	MsgCommands = "commands"
	MsgState    = "state"
	MsgError    = "error"
)

// 下发给页面 audio 元素的操作
const (
	OpPlay   = "play"
	OpPause  = "pause"
	OpSeek   = "seek"
	OpVolume = "volume"
)

// ClientMessage 页面发来的消息
type ClientMessage struct {
	Type     string          `json:"type"`
	Stem     *model.StemType `json:"stem,omitempty"`
	Duration float64         `json:"duration,omitempty"`
	Time     *float64        `json:"time,omitempty"`
	Fraction *float64        `json:"fraction,omitempty"`
	Volume   *int            `json:"volume,omitempty"`
}

// Command 针对单个分轨的操作
type Command struct {
	Stem  model.StemType `json:"stem"`
	Op    string         `json:"op"`
	Value float64        `json:"value,omitempty"`
}

// CommandsMessage 一次走带动作产生的全部命令，页面在一次遍历中执行
type CommandsMessage struct {
	Type     string    `json:"type"`
	Commands []Command `json:"commands"`
}

// StemView 页面渲染一个分轨所需的状态
type StemView struct {
	Stem model.StemType `json:"stem"`
	mixer.State
	EffectivelyMuted bool `json:"effectivelyMuted"`
}

// StateMessage 共享走带状态和混音台状态
type StateMessage struct {
	Type        string     `json:"type"`
	IsPlaying   bool       `json:"isPlaying"`
	CurrentTime float64    `json:"currentTime"`
	Duration    float64    `json:"duration"`
	Stems       []StemView `json:"stems"`
}

// ErrorMessage 协议错误
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
