package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"vital-guard/internal/config"
	"vital-guard/internal/models"
	"vital-guard/internal/stream"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Metrics 消费统计
type Metrics struct {
	mu sync.RWMutex

	MessagesProcessed int64 // 处理的消息总数
	MessagesSucceeded int64 // 成功摄取的消息数
	MessagesFailed    int64 // 摄取失败的消息数
	ErrorsParse       int64 // 解析错误
	ErrorsIngest      int64 // 摄取错误

	LastProcessTime time.Time
	StartTime       time.Time
}

// Snapshot 获取指标快照（线程安全）
func (m *Metrics) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesProcessed: m.MessagesProcessed,
		MessagesSucceeded: m.MessagesSucceeded,
		MessagesFailed:    m.MessagesFailed,
		ErrorsParse:       m.ErrorsParse,
		ErrorsIngest:      m.ErrorsIngest,
		LastProcessTime:   m.LastProcessTime,
		StartTime:         m.StartTime,
	}
}

func (m *Metrics) incrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesProcessed++
}

func (m *Metrics) incrementSucceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSucceeded++
	m.LastProcessTime = time.Now()
}

func (m *Metrics) incrementFailed(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesFailed++
	switch errorType {
	case "parse":
		m.ErrorsParse++
	case "ingest":
		m.ErrorsIngest++
	}
}

// Ingestor 摄取接口（由 pipeline.Pipeline 实现）
type Ingestor interface {
	Ingest(ctx context.Context, raw models.RawReading) (string, error)
}

// StreamConsumer Redis Streams 读数消费者
// 设备网关和模拟器把读数 XADD 到输入流，消费者按组读取并交给摄取管道。
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	ingestor    Ingestor
	logger      *zap.Logger
	metrics     *Metrics
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	ingestor Ingestor,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		ingestor:    ingestor,
		logger:      logger,
		metrics: &Metrics{
			StartTime: time.Now(),
		},
	}
}

// Metrics 获取消费统计
func (c *StreamConsumer) Metrics() Metrics {
	return c.metrics.Snapshot()
}

// Start 启动消费循环（阻塞直到 ctx 取消）
func (c *StreamConsumer) Start(ctx context.Context) error {
	input := c.config.Vitals.Stream.Input
	group := c.config.Vitals.ConsumerGroup

	if err := stream.CreateGroup(ctx, c.redisClient, input, group); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", input),
		zap.String("group", group),
		zap.String("consumer", c.config.Vitals.ConsumerName),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stream consumer stopped")
			return nil
		default:
		}

		messages, err := stream.ReadGroup(ctx, c.redisClient,
			input, group, c.config.Vitals.ConsumerName,
			c.config.Vitals.BatchSize, time.Second,
		)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stream consumer stopped")
				return nil
			}
			c.logger.Error("Failed to read from stream",
				zap.Error(err),
			)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage 处理单条流消息
// 解析失败的消息直接确认（留在流里重投也不会成功）；
// 摄取的瞬时失败不确认，等待重投。
func (c *StreamConsumer) handleMessage(ctx context.Context, msg stream.Message) {
	c.metrics.incrementProcessed()

	input := c.config.Vitals.Stream.Input
	group := c.config.Vitals.ConsumerGroup

	data, ok := msg.Values["data"].(string)
	if !ok {
		c.metrics.incrementFailed("parse")
		c.logger.Error("Stream message missing data field",
			zap.String("message_id", msg.ID),
		)
		c.ack(ctx, input, group, msg.ID)
		return
	}

	var raw models.RawReading
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		c.metrics.incrementFailed("parse")
		c.logger.Error("Failed to parse reading from stream",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		c.ack(ctx, input, group, msg.ID)
		return
	}

	readingID, err := c.ingestor.Ingest(ctx, raw)
	if err != nil {
		c.metrics.incrementFailed("ingest")
		c.logger.Error("Failed to ingest reading",
			zap.String("message_id", msg.ID),
			zap.String("patient_id", raw.PatientID),
			zap.Error(err),
		)
		if errors.Is(err, models.ErrValidation) {
			c.ack(ctx, input, group, msg.ID)
		}
		return
	}

	c.metrics.incrementSucceeded()
	c.logger.Debug("Reading consumed from stream",
		zap.String("message_id", msg.ID),
		zap.String("reading_id", readingID),
	)
	c.ack(ctx, input, group, msg.ID)
}

func (c *StreamConsumer) ack(ctx context.Context, input, group, id string) {
	if err := stream.Ack(ctx, c.redisClient, input, group, id); err != nil {
		c.logger.Error("Failed to ack stream message",
			zap.String("message_id", id),
			zap.Error(err),
		)
	}
}
