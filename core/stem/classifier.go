// Package stem 根据文件名识别分轨类型和曲名。
package stem

import (
	"path/filepath"
	"regexp"
	"strings"

	"StemShare/model"

	"golang.org/x/text/unicode/norm"
)

// UntitledTrack 无法从文件名得到曲名时的默认值
const UntitledTrack = "Untitled Track"

// keywords 每种分轨的关键词，顺序即匹配优先级
var keywords = [model.NumStemTypes][]string{
	model.Vocals: {"vocal", "vox", "voice", "sing"},
	model.Drums:  {"drum", "percussion", "beat"},
	model.Bass:   {"bass"},
	model.Guitar: {"guitar", "gtr"},
	model.Piano:  {"piano", "keys", "keyboard"},
	model.Other:  {"other", "inst", "synth", "strings", "pad"},
}

// 关键词前必须紧跟的分隔符
var delimiters = []string{"(", "_", "-", " "}

// AudioExtensions 可接受的音频扩展名
var AudioExtensions = []string{"wav", "mp3", "m4a", "aiff", "flac", "ogg"}

var (
	audioExtRe  = regexp.MustCompile(`(?i)\.(wav|mp3|m4a|aiff|flac|ogg)$`)
	parenStemRe = regexp.MustCompile(`(?i)[\s_-]*\((vocals|drums|bass|guitar|piano|other|vox|keys|keyboard|stems)\)`)
	trailStemRe = regexp.MustCompile(`(?i)[\s_-]*(vocals|drums|bass|guitar|piano|other|vox|keys|keyboard)$`)
)

// Keywords 返回某种分轨的关键词副本
func Keywords(s model.StemType) []string {
	if !s.Valid() {
		return nil
	}
	return append([]string(nil), keywords[s]...)
}

// Classify 根据文件名识别分轨类型。
// 关键词必须紧跟在 "(", "_", "-" 或空格之后，例如 "(Vocals)"、"_Drums"、"-bass"、" Guitar"。
// 按固定的分轨顺序和关键词顺序检查，第一个命中的类型胜出。
func Classify(filename string) (model.StemType, bool) {
	lower := strings.ToLower(filename)
	for _, s := range model.StemOrder {
		for _, kw := range keywords[s] {
			for _, d := range delimiters {
				if strings.Contains(lower, d+kw) {
					return s, true
				}
			}
		}
	}
	return 0, false
}

// ExtractTitle 从文件名推断曲名：去掉音频扩展名和分轨后缀，下划线转空格
func ExtractTitle(filename string) string {
	title := norm.NFC.String(filename)
	title = audioExtRe.ReplaceAllString(title, "")
	title = parenStemRe.ReplaceAllString(title, "")
	title = trailStemRe.ReplaceAllString(title, "")
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	if title == "" {
		return UntitledTrack
	}
	return title
}

// HasAudioExtension 扩展名是否在可接受列表中（不区分大小写）
func HasAudioExtension(filename string) bool {
	return audioExtRe.MatchString(filename)
}

// IsAudioFile 入口过滤：MIME 以 audio/ 开头或扩展名可识别
func IsAudioFile(filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "audio/") {
		return true
	}
	return HasAudioExtension(filename)
}

// Extension 原始文件扩展名（不含点，保留大小写），没有扩展名时返回 "bin"
func Extension(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
