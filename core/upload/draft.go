package upload

import (
	"strings"

	"StemShare/core/stem"
	"StemShare/model"
)

// Stems 六个槽位，每个槽位最多一个文件
type Stems [model.NumStemTypes]*File

// Count 已选择的分轨数量
func (s Stems) Count() int {
	n := 0
	for _, f := range s {
		if f != nil {
			n++
		}
	}
	return n
}

// Draft 上传前的表单状态：曲名 + 六个槽位
type Draft struct {
	Title string
	Stems Stems
}

// AddFiles 批量加入文件（拖放或多选）。
// 非音频文件跳过；无法识别类型的文件丢弃；槽位已有文件时后来的同类型文件被忽略；
// 曲名为空时取第一个成功放入槽位的文件推断出的曲名。返回本次放入的槽位。
func (d *Draft) AddFiles(files []File) []model.StemType {
	var placed []model.StemType
	detectedTitle := ""

	for i := range files {
		f := files[i]
		if !stem.IsAudioFile(f.Name, f.ContentType) {
			continue
		}
		t, ok := stem.Classify(f.Name)
		if !ok || d.Stems[t] != nil {
			continue
		}
		d.Stems[t] = &f
		placed = append(placed, t)
		if detectedTitle == "" {
			detectedTitle = stem.ExtractTitle(f.Name)
		}
	}

	if detectedTitle != "" && strings.TrimSpace(d.Title) == "" {
		d.Title = detectedTitle
	}
	return placed
}

// SetStem 手动为某个槽位选择文件（替换原有文件），曲名为空时从该文件推断
func (d *Draft) SetStem(t model.StemType, f File) {
	if !t.Valid() {
		return
	}
	d.Stems[t] = &f
	if strings.TrimSpace(d.Title) == "" {
		d.Title = stem.ExtractTitle(f.Name)
	}
}

// ClearStem 清空槽位
func (d *Draft) ClearStem(t model.StemType) {
	if !t.Valid() {
		return
	}
	d.Stems[t] = nil
}
