// Package storage 分轨文件的对象存储（MinIO / S3 兼容）。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"StemShare/config"
	"StemShare/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PublicPathPrefix 分轨文件对外的访问路径前缀，由 server 代理到 MinIO
const PublicPathPrefix = "/stems/"

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// MinioStore 分轨对象存储
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
	origin string
}

// NewMinioStore 创建 MinIO 客户端，不做网络调用
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return &MinioStore{
		client: client,
		bucket: cfg.MinioBucket,
		region: cfg.MinioRegion,
		origin: cfg.PublicOrigin,
	}, nil
}

// Bucket 存储桶名称
func (s *MinioStore) Bucket() string { return s.bucket }

// EnsureBucket 检查存储桶，不存在时创建
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Info("存储桶已存在", logger.String("bucket", s.bucket))
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("成功创建存储桶", logger.String("bucket", s.bucket))
	return nil
}

// Put 上传一个对象，size 未知时传 -1
func (s *MinioStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if size == 0 {
		size = -1
	}
	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", path, err)
	}
	logger.Debug("对象已上传",
		logger.String("bucket", s.bucket),
		logger.String("path", path),
		logger.Int64("size", info.Size))
	return nil
}

// PublicURL 对象的公开访问地址
func (s *MinioStore) PublicURL(path string) string {
	return PublicURL(s.origin, path)
}

// PublicURL origin 为空时返回站内相对地址
func PublicURL(origin, path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(origin, "/") + PublicPathPrefix + strings.Join(segments, "/")
}

// Object 读取中的对象；Body 支持 Seek，可以直接交给 http.ServeContent
type Object struct {
	Body         io.ReadSeekCloser
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// Close 释放对象
func (o *Object) Close() error {
	return o.Body.Close()
}

// Open 打开对象，不存在时返回 ErrObjectNotFound
func (s *MinioStore) Open(ctx context.Context, path string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err)
	}
	// GetObject 是惰性的，Stat 才会真正访问服务器
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, classify(err)
	}
	return &Object{
		Body:         obj,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
	}, nil
}

func classify(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	return err
}
