package model

import "time"

// Track 一首歌的分轨分享记录，上传完成后创建，之后不再修改
type Track struct {
	ID        string    `json:"id" gorm:"primaryKey;size:16"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	VocalsURL *string   `json:"vocalsUrl" gorm:"column:vocals_url;size:1024"`
	DrumsURL  *string   `json:"drumsUrl" gorm:"column:drums_url;size:1024"`
	BassURL   *string   `json:"bassUrl" gorm:"column:bass_url;size:1024"`
	GuitarURL *string   `json:"guitarUrl" gorm:"column:guitar_url;size:1024"`
	PianoURL  *string   `json:"pianoUrl" gorm:"column:piano_url;size:1024"`
	OtherURL  *string   `json:"otherUrl" gorm:"column:other_url;size:1024"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

func (t *Track) urlField(s StemType) **string {
	switch s {
	case Vocals:
		return &t.VocalsURL
	case Drums:
		return &t.DrumsURL
	case Bass:
		return &t.BassURL
	case Guitar:
		return &t.GuitarURL
	case Piano:
		return &t.PianoURL
	case Other:
		return &t.OtherURL
	}
	return nil
}

// StemURL 返回某个分轨的地址，没有该分轨时返回空串和 false
func (t *Track) StemURL(s StemType) (string, bool) {
	f := t.urlField(s)
	if f == nil || *f == nil || **f == "" {
		return "", false
	}
	return **f, true
}

// SetStemURL 设置分轨地址，空串表示清空
func (t *Track) SetStemURL(s StemType, url string) {
	f := t.urlField(s)
	if f == nil {
		return
	}
	if url == "" {
		*f = nil
		return
	}
	u := url
	*f = &u
}

// AvailableStems 按固定顺序返回存在地址的分轨
func (t *Track) AvailableStems() []StemType {
	stems := make([]StemType, 0, NumStemTypes)
	for _, s := range StemOrder {
		if _, ok := t.StemURL(s); ok {
			stems = append(stems, s)
		}
	}
	return stems
}

// Shareable 至少有一个分轨地址才可以分享
func (t *Track) Shareable() bool {
	return len(t.AvailableStems()) > 0
}

// StemInfo 接口返回的单个分轨
type StemInfo struct {
	Stem  StemType `json:"stem"`
	Label string   `json:"label"`
	URL   string   `json:"url"`
}

// TrackResponse 曲目接口响应
type TrackResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"createdAt"`
	Stems     []StemInfo `json:"stems"`
}

// ToResponse 转换为响应格式
func (t *Track) ToResponse() TrackResponse {
	resp := TrackResponse{
		ID:        t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		Stems:     make([]StemInfo, 0, NumStemTypes),
	}
	for _, s := range t.AvailableStems() {
		url, _ := t.StemURL(s)
		resp.Stems = append(resp.Stems, StemInfo{Stem: s, Label: s.Label(), URL: url})
	}
	return resp
}
