// Package upload 负责上传前的分轨选择和上传流程：逐个上传分轨文件、写入元数据、生成分享链接。
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"StemShare/core/stem"
	"StemShare/logger"
	"StemShare/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// TrackIDLength 曲目 ID 长度
	TrackIDLength = 10
	// SharePathPrefix 分享链接路径前缀
	SharePathPrefix = "/s/"

	// uploadShare 上传阶段占总进度的比例，剩余部分留给元数据写入
	uploadShare = 90
)

var (
	ErrEmptyTitle   = errors.New("please enter a track title")
	ErrNoStems      = errors.New("please upload at least one stem")
	ErrUploadFailed = errors.New("upload failed")
)

// Message 面向用户的错误提示
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmptyTitle):
		return "Please enter a track title"
	case errors.Is(err, ErrNoStems):
		return "Please upload at least one stem"
	default:
		return "Upload failed. Please try again."
	}
}

// ObjectStore 对象存储
type ObjectStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	PublicURL(path string) string
}

// TrackWriter 元数据写入
type TrackWriter interface {
	Create(ctx context.Context, track *model.Track) error
}

// ProgressFunc 进度回调，百分比单调递增，100 只在元数据写入成功后出现
type ProgressFunc func(percent float64)

// SubmitRequest 上传请求
type SubmitRequest struct {
	// Origin 站点来源，例如 https://stems.example.com
	Origin string
	Title  string
	Stems  Stems
}

// Result 上传结果
type Result struct {
	TrackID  string
	ShareURL string
	Track    *model.Track
}

// Orchestrator 上传流程编排
type Orchestrator struct {
	store  ObjectStore
	tracks TrackWriter
	newID  func() (string, error)
}

// NewOrchestrator 创建上传编排器
func NewOrchestrator(store ObjectStore, tracks TrackWriter) *Orchestrator {
	return &Orchestrator{store: store, tracks: tracks, newID: NewTrackID}
}

// NewTrackID 生成 10 位 URL 安全的随机 ID，碰撞概率可以忽略，不做唯一性检查
func NewTrackID() (string, error) {
	return gonanoid.New(TrackIDLength)
}

// ShareURL 分享链接：{origin}/s/{trackId}
func ShareURL(origin, trackID string) string {
	return strings.TrimRight(origin, "/") + SharePathPrefix + trackID
}

// ObjectPath 分轨在对象存储中的路径：{trackId}/{stemType}.{ext}
func ObjectPath(trackID string, t model.StemType, filename string) string {
	return fmt.Sprintf("%s/%s.%s", trackID, t, stem.Extension(filename))
}

// Validate 提交前的校验，不产生任何网络调用
func Validate(title string, stems Stems) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if stems.Count() == 0 {
		return ErrNoStems
	}
	return nil
}

// Submit 按固定顺序逐个上传分轨，全部成功后写入一条元数据并返回分享链接。
// 任何一步失败都会中止整个操作；已经上传的对象保留在存储中，不做回滚。
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest, progress ProgressFunc) (*Result, error) {
	if err := Validate(req.Title, req.Stems); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(float64) {}
	}

	trackID, err := o.newID()
	if err != nil {
		logger.Error("生成曲目ID失败", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: generate id: %w", ErrUploadFailed, err)
	}

	track := &model.Track{ID: trackID, Title: strings.TrimSpace(req.Title)}
	total := req.Stems.Count()
	completed := 0
	progress(0)

	for _, t := range model.StemOrder {
		f := req.Stems[t]
		if f == nil {
			continue
		}
		path := ObjectPath(trackID, t, f.Name)
		if err := o.put(ctx, path, f); err != nil {
			logger.Error("分轨上传失败",
				logger.String("trackId", trackID),
				logger.String("stem", t.String()),
				logger.String("path", path),
				logger.Int("completed", completed),
				logger.ErrorField(err))
			return nil, fmt.Errorf("%w: stem %s: %w", ErrUploadFailed, t, err)
		}
		track.SetStemURL(t, o.store.PublicURL(path))
		completed++
		progress(float64(completed*uploadShare) / float64(total))

		logger.Debug("分轨上传完成",
			logger.String("trackId", trackID),
			logger.String("stem", t.String()),
			logger.Int64("size", f.Size))
	}

	if err := o.tracks.Create(ctx, track); err != nil {
		logger.Error("写入曲目元数据失败",
			logger.String("trackId", trackID),
			logger.Int("uploadedStems", completed),
			logger.ErrorField(err))
		return nil, fmt.Errorf("%w: save metadata: %w", ErrUploadFailed, err)
	}
	progress(100)

	shareURL := ShareURL(req.Origin, trackID)
	logger.Info("曲目上传完成",
		logger.String("trackId", trackID),
		logger.String("title", track.Title),
		logger.Int("stems", completed),
		logger.String("shareUrl", shareURL))

	return &Result{TrackID: trackID, ShareURL: shareURL, Track: track}, nil
}

func (o *Orchestrator) put(ctx context.Context, path string, f *File) error {
	if f.Open == nil {
		return fmt.Errorf("file %s has no content", f.Name)
	}
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer r.Close()

	return o.store.Put(ctx, path, r, f.Size, f.contentType())
}
