package seed

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"valuation-form-go/pkg/storage"
)

// Source 提供待导入的目录包文件。
type Source interface {
	// List 返回按名称排序的目录包文件名。
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// DirSource 从本地目录（递归）读取目录包。
type DirSource struct {
	Dir string
}

func (s DirSource) List(_ context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.Dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsBundleFile(p) {
			return nil
		}
		rel, err := filepath.Rel(s.Dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s DirSource) Read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(name)))
}

// MinIOSource 从 MinIO 存储桶的某个前缀下读取目录包。
type MinIOSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

func (s MinIOSource) List(ctx context.Context) ([]string, error) {
	names, err := storage.ListObjectNames(ctx, s.Client, s.Bucket, s.Prefix)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if IsBundleFile(n) && !strings.HasSuffix(n, "/") {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s MinIOSource) Read(ctx context.Context, name string) ([]byte, error) {
	return storage.ReadObject(ctx, s.Client, s.Bucket, name)
}
