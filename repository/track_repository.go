package repository

import (
	"context"
	"errors"
	"fmt"

	"StemShare/logger"
	"StemShare/model"

	"gorm.io/gorm"
)

// TrackRepository 曲目数据访问接口
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*model.Track, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Track, error)
}

// gormTrackRepository GORM 实现
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository 创建 GORM 曲目仓库
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create 写入一条曲目记录，缺失的分轨列为 NULL
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		return fmt.Errorf("insert track %s: %w", track.ID, err)
	}
	return nil
}

// GetByID 根据ID获取曲目
func (r *gormTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query track %s: %w", id, err)
	}
	return &track, nil
}

// ListRecent 最近创建的曲目
func (r *gormTrackRepository) ListRecent(ctx context.Context, limit int) ([]*model.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	var tracks []*model.Track
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return tracks, nil
}

// TrackCache 曲目缓存
type TrackCache interface {
	Get(ctx context.Context, id string) (*model.Track, error)
	Set(ctx context.Context, track *model.Track) error
}

// cachedTrackRepository 读穿缓存；曲目写入后不再修改，不需要失效
type cachedTrackRepository struct {
	TrackRepository
	cache TrackCache
}

// NewCachedTrackRepository 在仓库外包一层缓存，cache 为 nil 时原样返回
func NewCachedTrackRepository(repo TrackRepository, cache TrackCache) TrackRepository {
	if cache == nil {
		return repo
	}
	return &cachedTrackRepository{TrackRepository: repo, cache: cache}
}

// Create 写库成功后顺便写缓存，缓存失败只记日志
func (r *cachedTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if err := r.TrackRepository.Create(ctx, track); err != nil {
		return err
	}
	r.store(ctx, track)
	return nil
}

// GetByID 先查缓存，未命中回源
func (r *cachedTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	if track, err := r.cache.Get(ctx, id); err != nil {
		logger.Warn("曲目缓存不可用", logger.String("trackId", id), logger.ErrorField(err))
	} else if track != nil {
		return track, nil
	}

	track, err := r.TrackRepository.GetByID(ctx, id)
	if err != nil || track == nil {
		return track, err
	}
	r.store(ctx, track)
	return track, nil
}

func (r *cachedTrackRepository) store(ctx context.Context, track *model.Track) {
	if err := r.cache.Set(ctx, track); err != nil {
		logger.Warn("写入曲目缓存失败", logger.String("trackId", track.ID), logger.ErrorField(err))
	}
}
