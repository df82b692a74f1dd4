package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cvbuilder/internal/config"
)

const contentTypePDF = "application/pdf"

// Client 封装 MinIO 客户端：内部地址负责读写，公网地址只用于签发下载链接。
type Client struct {
	internalClient *minio.Client
	publicClient   *minio.Client
	bucketName     string
}

// NewClient 根据配置初始化 MinIO 客户端，并确保目标 Bucket 存在。
func NewClient(ctx context.Context, cfg config.MinIOConfig) (*Client, error) {
	bucketLookup, err := parseBucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}

	internalClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: bucketLookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	parsedPublicEndpoint, err := url.Parse(cfg.PublicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if parsedPublicEndpoint.Host == "" {
		return nil, fmt.Errorf("invalid minio public endpoint, host missing")
	}

	publicClient, err := minio.New(parsedPublicEndpoint.Host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       parsedPublicEndpoint.Scheme == "https",
		Region:       cfg.Region,
		BucketLookup: bucketLookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init public minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := internalClient.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := internalClient.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		internalClient: internalClient,
		publicClient:   publicClient,
		bucketName:     cfg.Bucket,
	}, nil
}

func parseBucketLookup(raw string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	default:
		return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", raw)
	}
}

// PutPDF 将导出的 PDF 上传到私有 Bucket。
func (c *Client) PutPDF(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	opts := minio.PutObjectOptions{ContentType: contentTypePDF}
	if _, err := c.internalClient.PutObject(ctx, c.bucketName, objectKey, reader, size, opts); err != nil {
		return wrapObjectErr("put object", objectKey, err)
	}
	return nil
}

// Stat 返回对象大小；对象不存在时返回 ErrObjectNotFound。
func (c *Client) Stat(ctx context.Context, objectKey string) (int64, error) {
	info, err := c.internalClient.StatObject(ctx, c.bucketName, objectKey, minio.StatObjectOptions{})
	if err != nil {
		return 0, wrapObjectErr("stat object", objectKey, err)
	}
	return info.Size, nil
}

// PresignDownload 生成限时下载链接，filename 非空时浏览器以附件形式保存。
func (c *Client) PresignDownload(ctx context.Context, objectKey, filename string, ttl time.Duration) (string, error) {
	var params url.Values
	if filename != "" {
		params = url.Values{}
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
		params.Set("response-content-type", contentTypePDF)
	}
	presignedURL, err := c.publicClient.PresignedGetObject(ctx, c.bucketName, objectKey, ttl, params)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return presignedURL.String(), nil
}

// DeleteObject 删除指定对象；对象不存在视为成功。
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil
	}
	if err := c.internalClient.RemoveObject(ctx, c.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return wrapObjectErr("remove object", objectKey, err)
	}
	return nil
}

// DeletePrefix 删除指定前缀下的所有对象，用于简历删除后清理导出文件。
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}

	objCh := c.internalClient.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var failed int
	var lastErr error
	for object := range objCh {
		if object.Err != nil {
			return fmt.Errorf("list objects under %q: %w", prefix, object.Err)
		}
		if err := c.DeleteObject(ctx, object.Key); err != nil {
			failed++
			lastErr = err
		}
	}

	switch failed {
	case 0:
		return nil
	case 1:
		return lastErr
	default:
		slog.Default().Error("delete minio objects under prefix failed",
			slog.String("prefix", prefix),
			slog.Int("failed_count", failed),
		)
		return fmt.Errorf("delete objects under %q: %d errors", prefix, failed)
	}
}
