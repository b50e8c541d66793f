package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"valuation-form-go/pkg/log"
)

// RDB 是全局 Redis 客户端，只作为目录缓存的 L2 层和 Kafka 重试计数使用。
// 未配置地址或连接失败时保持为 nil，缓存退化为进程内 LRU。
var RDB *redis.Client

const redisPingTimeout = 3 * time.Second

// InitRedis 初始化 Redis 客户端连接。Redis 不是必需依赖，连接失败只记录告警。
func InitRedis(addr, password string, db int) {
	RDB = nil
	if addr == "" {
		log.Warnf("[Redis] 地址未配置，目录缓存只使用进程内 LRU")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("[Redis] 无法连接 %s，目录缓存只使用进程内 LRU: %v", addr, err)
		_ = client.Close()
		return
	}

	RDB = client
	log.Infof("[Redis] 已连接 %s (db=%d)", addr, db)
}
