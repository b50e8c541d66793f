package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"valuation-form-go/internal/model"
	"valuation-form-go/pkg/log"
)

var cacheLog = log.For("CatalogCache")

const catalogKeyPrefix = "catalog:"

// CatalogCache 定义了目录缓存的失效操作，由目录导入和目录变更事件调用。
type CatalogCache interface {
	InvalidateBank(ctx context.Context, bankCode string) error
	InvalidateTemplate(ctx context.Context, bankCode, propertyType string) error
	InvalidateCommonFields(ctx context.Context) error
	InvalidateDocumentTypes(ctx context.Context) error
	InvalidateAll(ctx context.Context) error
}

// CachedCatalogRepository 在 CatalogRepository 外层加两级缓存：进程内 LRU (L1) 和 Redis (L2)。
// 两级缓存都保存 JSON 字节，每次读取都解码出新的对象，调用方可以随意修改返回值。
// 未找到的结果不缓存。rdb 为 nil 时只使用进程内缓存。
type CachedCatalogRepository struct {
	next  CatalogRepository
	rdb   *redis.Client
	local *expirable.LRU[string, []byte]
	ttl   time.Duration
}

var (
	_ CatalogRepository = (*CachedCatalogRepository)(nil)
	_ CatalogCache      = (*CachedCatalogRepository)(nil)
)

// NewCachedCatalogRepository 创建带缓存的目录存储。
func NewCachedCatalogRepository(next CatalogRepository, rdb *redis.Client, size int, ttl time.Duration) *CachedCatalogRepository {
	return &CachedCatalogRepository{
		next:  next,
		rdb:   rdb,
		local: expirable.NewLRU[string, []byte](size, nil, ttl),
		ttl:   ttl,
	}
}

func bankCacheKey(bankCode string) string {
	return catalogKeyPrefix + "bank:" + bankCode
}

func templateCacheKey(bankCode, propertyType string) string {
	return catalogKeyPrefix + "template:" + model.TemplateCollectionName(bankCode, propertyType)
}

func commonFieldsCacheKey() string {
	return catalogKeyPrefix + "common:" + model.CommonFieldsCatalogName
}

const documentTypesKeyPrefix = catalogKeyPrefix + "doctypes:"

// 键保持输入原样：文档类型的三种大小写匹配结果依赖房产类型的具体写法。
func documentTypesCacheKey(bankCode, propertyType string) string {
	return documentTypesKeyPrefix + bankCode + ":" + propertyType
}

func loadCached[T any](ctx context.Context, c *CachedCatalogRepository, key string, load func() (T, error)) (T, error) {
	if raw, ok := c.local.Get(key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.local.Remove(key)
	}

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				c.local.Add(key, raw)
				return v, nil
			}
			cacheLog.Warnf("缓存内容无法解码，忽略 key=%s", key)
		case !errors.Is(err, redis.Nil):
			cacheLog.Warnf("读取 Redis 缓存失败 key=%s: %v", key, err)
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		cacheLog.Warnf("序列化缓存内容失败 key=%s: %v", key, err)
		return v, nil
	}
	c.local.Add(key, raw)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			cacheLog.Warnf("写入 Redis 缓存失败 key=%s: %v", key, err)
		}
	}
	return v, nil
}

// GetBank 先查缓存，未命中时读取底层存储。
func (c *CachedCatalogRepository) GetBank(ctx context.Context, bankCode string) (*model.Bank, error) {
	return loadCached(ctx, c, bankCacheKey(bankCode), func() (*model.Bank, error) {
		return c.next.GetBank(ctx, bankCode)
	})
}

// GetStructuralTemplate 先查缓存，未命中时读取底层存储。
func (c *CachedCatalogRepository) GetStructuralTemplate(ctx context.Context, bankCode, propertyType string) (*model.StructuralTemplate, error) {
	return loadCached(ctx, c, templateCacheKey(bankCode, propertyType), func() (*model.StructuralTemplate, error) {
		return c.next.GetStructuralTemplate(ctx, bankCode, propertyType)
	})
}

// GetCommonFields 先查缓存，未命中时读取底层存储。
func (c *CachedCatalogRepository) GetCommonFields(ctx context.Context) (*model.CommonFieldsCatalog, error) {
	return loadCached(ctx, c, commonFieldsCacheKey(), func() (*model.CommonFieldsCatalog, error) {
		return c.next.GetCommonFields(ctx)
	})
}

// GetDocumentTypes 先查缓存，未命中时读取底层存储。
func (c *CachedCatalogRepository) GetDocumentTypes(ctx context.Context, bankCode, propertyType string) ([]model.DocumentType, error) {
	return loadCached(ctx, c, documentTypesCacheKey(bankCode, propertyType), func() ([]model.DocumentType, error) {
		return c.next.GetDocumentTypes(ctx, bankCode, propertyType)
	})
}

// UpsertBank 写入底层存储后使对应缓存失效。
func (c *CachedCatalogRepository) UpsertBank(ctx context.Context, bank *model.Bank) error {
	if err := c.next.UpsertBank(ctx, bank); err != nil {
		return err
	}
	return c.InvalidateBank(ctx, bank.BankCode)
}

// UpsertStructuralTemplate 写入底层存储后使对应缓存失效。
func (c *CachedCatalogRepository) UpsertStructuralTemplate(ctx context.Context, tpl *model.StructuralTemplate) error {
	if err := c.next.UpsertStructuralTemplate(ctx, tpl); err != nil {
		return err
	}
	return c.InvalidateTemplate(ctx, tpl.BankCode, tpl.PropertyType)
}

// UpsertCommonFields 写入底层存储后使对应缓存失效。
func (c *CachedCatalogRepository) UpsertCommonFields(ctx context.Context, catalog *model.CommonFieldsCatalog) error {
	if err := c.next.UpsertCommonFields(ctx, catalog); err != nil {
		return err
	}
	return c.InvalidateCommonFields(ctx)
}

// UpsertDocumentType 写入底层存储后使全部文档类型缓存失效。
func (c *CachedCatalogRepository) UpsertDocumentType(ctx context.Context, dt *model.DocumentType) error {
	if err := c.next.UpsertDocumentType(ctx, dt); err != nil {
		return err
	}
	return c.InvalidateDocumentTypes(ctx)
}

// InvalidateBank 删除一个银行的缓存。
func (c *CachedCatalogRepository) InvalidateBank(ctx context.Context, bankCode string) error {
	return c.invalidateKeys(ctx, bankCacheKey(bankCode))
}

// InvalidateTemplate 删除一个结构模板的缓存。
func (c *CachedCatalogRepository) InvalidateTemplate(ctx context.Context, bankCode, propertyType string) error {
	return c.invalidateKeys(ctx, templateCacheKey(bankCode, propertyType))
}

// InvalidateCommonFields 删除通用字段目录的缓存。
func (c *CachedCatalogRepository) InvalidateCommonFields(ctx context.Context) error {
	return c.invalidateKeys(ctx, commonFieldsCacheKey())
}

// InvalidateDocumentTypes 删除所有 (银行, 房产类型) 组合的文档类型缓存。
func (c *CachedCatalogRepository) InvalidateDocumentTypes(ctx context.Context) error {
	return c.invalidatePrefix(ctx, documentTypesKeyPrefix)
}

// InvalidateAll 清空全部目录缓存。
func (c *CachedCatalogRepository) InvalidateAll(ctx context.Context) error {
	return c.invalidatePrefix(ctx, catalogKeyPrefix)
}

func (c *CachedCatalogRepository) invalidateKeys(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.local.Remove(key)
	}
	if c.rdb == nil || len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *CachedCatalogRepository) invalidatePrefix(ctx context.Context, prefix string) error {
	for _, key := range c.local.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.local.Remove(key)
		}
	}
	if c.rdb == nil {
		return nil
	}
	keys, err := c.rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
