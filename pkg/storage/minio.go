// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
// 目录包以 YAML/JSON 对象的形式存放在桶中的固定前缀下。
package storage

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"valuation-form-go/internal/config"
	"valuation-form-go/pkg/log"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确认目录所在的存储桶存在。
// 目录桶由目录维护方创建，本服务只读，桶不存在时返回错误而不是自行创建。
func InitMinIO(cfg config.MinIOConfig) error {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), cfg.BucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 '%s' 不存在", cfg.BucketName)
	}

	MinioClient = client
	log.Infof("MinIO 客户端初始化成功，存储桶 '%s'", cfg.BucketName)
	return nil
}

// ListObjectNames 递归列出前缀下的全部对象名，按名称排序。
func ListObjectNames(ctx context.Context, client *minio.Client, bucketName, prefix string) ([]string, error) {
	var names []string
	for obj := range client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// ReadObject 读取一个对象的全部内容。
func ReadObject(ctx context.Context, client *minio.Client, bucketName, objectName string) ([]byte, error) {
	object, err := client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("从 MinIO 下载对象 %s 失败: %w", objectName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("读取 MinIO 对象 %s 失败: %w", objectName, err)
	}
	return data, nil
}
