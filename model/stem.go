package model

import (
	"fmt"
	"strings"
)

// StemType 分轨类型，固定的六个槽位
type StemType int

const (
	Vocals StemType = iota
	Drums
	Bass
	Guitar
	Piano
	Other
)

// NumStemTypes 槽位数量，所有按槽位索引的数组都使用这个长度
const NumStemTypes = 6

// StemOrder 固定的分轨顺序（分类、上传、播放都按这个顺序遍历）
var StemOrder = [NumStemTypes]StemType{Vocals, Drums, Bass, Guitar, Piano, Other}

var stemNames = [NumStemTypes]string{"vocals", "drums", "bass", "guitar", "piano", "other"}

var stemLabels = [NumStemTypes]string{"Vocals", "Drums", "Bass", "Guitar", "Piano", "Other"}

// Valid 是否为六个槽位之一
func (s StemType) Valid() bool {
	return s >= Vocals && s <= Other
}

func (s StemType) String() string {
	if !s.Valid() {
		return fmt.Sprintf("StemType(%d)", int(s))
	}
	return stemNames[s]
}

// Label 页面展示用名称
func (s StemType) Label() string {
	if !s.Valid() {
		return ""
	}
	return stemLabels[s]
}

// URLColumn 元数据表中对应的列名，例如 drums_url
func (s StemType) URLColumn() string {
	return s.String() + "_url"
}

// ParseStemType 解析分轨名称（不区分大小写）
func ParseStemType(name string) (StemType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stemNames {
		if n == name {
			return StemType(i), true
		}
	}
	return 0, false
}

// MarshalText 以名称形式序列化到 JSON
func (s StemType) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stem type %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText 从名称反序列化
func (s *StemType) UnmarshalText(text []byte) error {
	t, ok := ParseStemType(string(text))
	if !ok {
		return fmt.Errorf("unknown stem type %q", string(text))
	}
	*s = t
	return nil
}
