package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisTransport 基于 Redis 发布/订阅的通知传输
// 在线客户端（响应者端、家属端、联系人网关）订阅各自频道接收推送。
// 响应者是全局频道；家属和紧急联系人频道按患者划分。
type RedisTransport struct {
	client *redis.Client
	prefix string // 频道前缀，如 "vital-guard:"
}

// NewRedisTransport 创建 Redis 通知传输
func NewRedisTransport(client *redis.Client, prefix string) *RedisTransport {
	return &RedisTransport{
		client: client,
		prefix: prefix,
	}
}

// Channel 构建目标频道名
func (t *RedisTransport) Channel(target Target, patientID string) string {
	switch target {
	case TargetResponders:
		return t.prefix + "notify:responders"
	default:
		return fmt.Sprintf("%snotify:%s:%s", t.prefix, target, patientID)
	}
}

// Send 发布通知到目标频道
func (t *RedisTransport) Send(ctx context.Context, target Target, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	channel := t.Channel(target, payload.PatientID)
	if err := t.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", channel, err)
	}

	return nil
}
