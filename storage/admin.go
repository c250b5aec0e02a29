package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByExtension  map[string]int64
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// TrackObjects 一首曲目目录下的所有分轨对象
type TrackObjects struct {
	TrackID string
	Objects []ObjectInfo
	Size    int64
}

// List 列出前缀下的对象并统计
func (s *MinioStore) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("检查存储桶是否存在失败: %w", err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("存储桶 %s 不存在", s.bucket)
	}

	var objects []ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, Summarize(objects), nil
}

// Summarize 汇总对象数量、大小和扩展名分布
func Summarize(objects []ObjectInfo) *BucketStats {
	stats := &BucketStats{ByExtension: make(map[string]int64)}
	for _, obj := range objects {
		stats.TotalObjects++
		stats.TotalSize += obj.Size
		if obj.LastModified.After(stats.LastModified) {
			stats.LastModified = obj.LastModified
		}
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(obj.Key)), ".")
		if ext == "" {
			ext = "unknown"
		}
		stats.ByExtension[ext]++
	}
	return stats
}

// GroupByTrack 按曲目目录（对象路径第一段）分组，结果按曲目 ID 排序
func GroupByTrack(objects []ObjectInfo) []TrackObjects {
	index := make(map[string]int)
	var tracks []TrackObjects
	for _, obj := range objects {
		id, _, ok := strings.Cut(obj.Key, "/")
		if !ok {
			id = ""
		}
		i, seen := index[id]
		if !seen {
			i = len(tracks)
			index[id] = i
			tracks = append(tracks, TrackObjects{TrackID: id})
		}
		tracks[i].Objects = append(tracks[i].Objects, obj)
		tracks[i].Size += obj.Size
	}
	sort.Slice(tracks, func(a, b int) bool { return tracks[a].TrackID < tracks[b].TrackID })
	return tracks
}

// DeletePrefix 递归删除前缀下的所有对象，返回删除数量
func (s *MinioStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("删除操作需要指定目录前缀")
	}

	objects, _, err := s.List(ctx, prefix, true)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, fmt.Errorf("目录 %s 为空或不存在", prefix)
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return len(objects), nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
