package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vital-guard/internal/config"
	"vital-guard/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheManager Redis 实时缓存管理器
// 缓存患者最近一次读数和活跃报警，供观察端（家属看板等）低延迟读取。
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// realtimeKey 构建实时读数缓存键
func (c *CacheManager) realtimeKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Vitals.Cache.KeyPrefix,
		patientID,
		c.config.Vitals.Cache.RealtimeSuffix,
	)
}

// alertKey 构建报警缓存键
func (c *CacheManager) alertKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Vitals.Cache.KeyPrefix,
		patientID,
		c.config.Vitals.Cache.AlertSuffix,
	)
}

// SetLatestReading 写入患者最近一次读数（带 TTL）
func (c *CacheManager) SetLatestReading(ctx context.Context, reading *models.VitalReading) error {
	if reading == nil || reading.PatientID == "" {
		return fmt.Errorf("reading with patient_id is required")
	}

	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	ttl := time.Duration(c.config.Vitals.Cache.RealtimeTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.realtimeKey(reading.PatientID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set realtime cache: %w", err)
	}

	return nil
}

// GetLatestReading 读取患者最近一次读数
func (c *CacheManager) GetLatestReading(ctx context.Context, patientID string) (*models.VitalReading, error) {
	val, err := c.redisClient.Get(ctx, c.realtimeKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("realtime data not found for patient: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get realtime cache: %w", err)
	}

	var reading models.VitalReading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading: %w", err)
	}

	return &reading, nil
}

// UpdateAlertCache 更新患者活跃报警缓存（带 TTL）
func (c *CacheManager) UpdateAlertCache(ctx context.Context, patientID string, alerts []models.EmergencyAlert) error {
	jsonData, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	ttl := time.Duration(c.config.Vitals.Cache.AlertTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.alertKey(patientID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set alert cache: %w", err)
	}

	c.logger.Debug("Updated alert cache",
		zap.String("patient_id", patientID),
		zap.Int("alert_count", len(alerts)),
	)

	return nil
}
