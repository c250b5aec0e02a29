package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StemShare/logger"
	"StemShare/model"

	"github.com/go-redis/redis/v8"
)

const (
	trackKeyPrefix = "stemshare:track:"
	maxRetries     = 2
)

// TrackCache 曲目元数据缓存；曲目创建后不再修改，可以长时间缓存
type TrackCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewTrackCache 创建曲目缓存
func NewTrackCache(client redis.Cmdable, ttl time.Duration) *TrackCache {
	return &TrackCache{client: client, ttl: ttl}
}

// TrackKey 曲目缓存键
func TrackKey(id string) string {
	return trackKeyPrefix + id
}

// Get 读取缓存，未命中返回 nil, nil。
// 网络错误重试一次后放弃，同样返回 nil, nil，让调用方回源到数据库。
func (c *TrackCache) Get(ctx context.Context, id string) (*model.Track, error) {
	key := TrackKey(id)
	retryDelay := 50 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return decodeTrack(data)
		}
		if isMiss(err) {
			return nil, nil
		}
		if attempt < maxRetries-1 {
			logger.Warn("读取曲目缓存失败，准备重试",
				logger.String("key", key),
				logger.Int("attempt", attempt+1),
				logger.ErrorField(err))
			select {
			case <-ctx.Done():
				return nil, nil
			case <-time.After(retryDelay):
			}
			continue
		}
		logger.Error("读取曲目缓存最终失败", logger.String("key", key), logger.ErrorField(err))
	}
	return nil, nil
}

// Set 写入缓存
func (c *TrackCache) Set(ctx context.Context, track *model.Track) error {
	data, err := json.Marshal(track)
	if err != nil {
		return fmt.Errorf("encode track %s: %w", track.ID, err)
	}
	if err := c.client.Set(ctx, TrackKey(track.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache track %s: %w", track.ID, err)
	}
	logger.Debug("曲目缓存已写入",
		logger.String("trackId", track.ID),
		logger.Duration("ttl", c.ttl))
	return nil
}

// Delete 删除缓存
func (c *TrackCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, TrackKey(id)).Err()
}

func decodeTrack(data []byte) (*model.Track, error) {
	var track model.Track
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("decode cached track: %w", err)
	}
	return &track, nil
}
