// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"valuation-form-go/internal/config"
	"valuation-form-go/pkg/events"
	"valuation-form-go/pkg/log"
)

// maxAttempts 是同一条目录事件允许处理失败的次数，达到后提交 offset 放弃重试。
// 重试在消费循环内进行，kafka-go 在同一会话内不会重新投递未提交的消息。
const maxAttempts = 3

// CatalogEventProcessor 处理一条目录变更事件。
// 这一接口让 Kafka 消费者与具体的缓存失效实现解耦。
type CatalogEventProcessor interface {
	Process(ctx context.Context, event events.CatalogChangeEvent) error
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ActivityPublisher 把活动事件写入活动日志主题。
type ActivityPublisher struct {
	writer *kafka.Writer
}

// NewActivityPublisher 创建活动事件生产者。
func NewActivityPublisher(cfg config.KafkaConfig) *ActivityPublisher {
	p := &ActivityPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerList(cfg.Brokers)...),
			Topic:        cfg.ActivityTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
	log.Infof("Kafka 活动事件生产者初始化成功，主题 '%s'", cfg.ActivityTopic)
	return p
}

// Publish 发送一条活动事件，以组织 ID 作为消息键保证同一组织的事件有序。
func (p *ActivityPublisher) Publish(ctx context.Context, event events.ActivityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrganizationID),
		Value: payload,
	})
}

// Close 关闭底层 writer，刷新未发送的消息。
func (p *ActivityPublisher) Close() error {
	return p.writer.Close()
}

// StartCatalogConsumer 启动目录变更事件的消费循环，直到 ctx 被取消。
// 处理失败时用 Redis 计数，未达到 maxAttempts 前不提交 offset，由 Kafka 重新投递；
// rdb 为 nil 或 Redis 异常时同样不提交，保守地让 Kafka 重试。
func StartCatalogConsumer(ctx context.Context, cfg config.KafkaConfig, rdb *redis.Client, processor CatalogEventProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.CatalogTopic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.CatalogTopic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			// 临时故障（broker 重启、再均衡等）后继续拉取
			log.Error("从 Kafka 读取消息失败，稍后重试", err)
			if !sleepCtx(ctx, fetchBackoff) {
				log.Info("Kafka 消费者已停止")
				return
			}
			continue
		}

		var event events.CatalogChangeEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}
		if event.EventID == "" {
			event.EventID = fmt.Sprintf("%s-%d-%d", m.Topic, m.Partition, m.Offset)
		}

		if !processWithRetry(ctx, rdb, processor, event) {
			// 停机时未处理完的消息不提交，重启后由 Kafka 重新投递
			log.Info("Kafka 消费者已停止")
			return
		}
		commit(ctx, r, m)
	}
}

// 重试间隔；测试中会调小。
var (
	retryBackoff = 500 * time.Millisecond
	fetchBackoff = 2 * time.Second
)

// processWithRetry 在当前会话内重试处理一条事件，最多 maxAttempts 次。
// Redis 中的失败计数跨重启累积，达到上限同样放弃。
// 返回 true 表示可以提交 offset（成功或已放弃），返回 false 表示 ctx 已取消。
func processWithRetry(ctx context.Context, rdb *redis.Client, processor CatalogEventProcessor, event events.CatalogChangeEvent) bool {
	for attempt := 1; ; attempt++ {
		err := processor.Process(ctx, event)
		if err == nil {
			if rdb != nil {
				_ = rdb.Del(ctx, attemptsKey(event.EventID)).Err()
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		log.Errorf("处理目录事件失败: id=%s kind=%s attempt=%d, Error: %v", event.EventID, event.Kind, attempt, err)
		if shouldGiveUp(ctx, rdb, event.EventID) || attempt >= maxAttempts {
			log.Errorf("目录事件多次失败(>=%d)，提交 offset 放弃重试，缓存将在 TTL 到期后刷新: id=%s", maxAttempts, event.EventID)
			return true
		}
		if !sleepCtx(ctx, retryBackoff*time.Duration(attempt)) {
			return false
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func attemptsKey(eventID string) string {
	return fmt.Sprintf("kafka:attempts:%s", eventID)
}

func shouldGiveUp(ctx context.Context, rdb *redis.Client, eventID string) bool {
	if rdb == nil {
		return false
	}
	key := attemptsKey(eventID)
	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false
	}
	_ = rdb.Expire(ctx, key, 24*time.Hour).Err()
	return attempts >= maxAttempts
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
