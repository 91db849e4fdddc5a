package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalwatch/internal/config"
	"vitalwatch/internal/models"
	redisutil "vitalwatch/pkg/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheManager Redis 缓存管理器。
// 阈值读路径先查缓存（TTL 内配置变更靠更新时主动失效），
// 实时读数缓存供仪表盘快速读取最新值。
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

func (c *CacheManager) thresholdKey(patientID int64) string {
	return fmt.Sprintf("%s%d%s",
		c.config.Alert.Cache.ThresholdKeyPrefix,
		patientID,
		c.config.Alert.Cache.ThresholdSuffix,
	)
}

func (c *CacheManager) realtimeKey(patientID int64) string {
	return fmt.Sprintf("%s%d%s",
		c.config.Alert.Cache.RealtimeKeyPrefix,
		patientID,
		c.config.Alert.Cache.RealtimeSuffix,
	)
}

// GetThresholds 读取阈值缓存；未命中返回 redis.Nil 包装错误
func (c *CacheManager) GetThresholds(ctx context.Context, patientID int64) (*models.ThresholdSet, error) {
	val, err := c.redisClient.Get(ctx, c.thresholdKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("thresholds not cached for patient: %d", patientID)
		}
		return nil, fmt.Errorf("failed to get threshold cache: %w", err)
	}

	var t models.ThresholdSet
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached thresholds: %w", err)
	}

	return &t, nil
}

// SetThresholds 写入阈值缓存（带 TTL）
func (c *CacheManager) SetThresholds(ctx context.Context, t *models.ThresholdSet) error {
	jsonData, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal thresholds: %w", err)
	}

	ttl := time.Duration(c.config.Alert.Cache.ThresholdTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.thresholdKey(t.PatientID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set threshold cache: %w", err)
	}

	return nil
}

// InvalidateThresholds 阈值变更后主动失效缓存
func (c *CacheManager) InvalidateThresholds(ctx context.Context, patientID int64) error {
	if err := c.redisClient.Del(ctx, c.thresholdKey(patientID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate threshold cache: %w", err)
	}
	return nil
}

// SetRealtimeReading 更新患者最新读数缓存（带 TTL）
func (c *CacheManager) SetRealtimeReading(ctx context.Context, reading *models.VitalsReading) error {
	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	ttl := time.Duration(c.config.Alert.Cache.RealtimeTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.realtimeKey(reading.PatientID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set realtime cache: %w", err)
	}

	c.logger.Debug("Updated realtime cache",
		zap.Int64("patient_id", reading.PatientID),
	)

	return nil
}

// GetRealtimeReading 读取患者最新读数缓存
func (c *CacheManager) GetRealtimeReading(ctx context.Context, patientID int64) (*models.VitalsReading, error) {
	val, err := c.redisClient.Get(ctx, c.realtimeKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("realtime data not found for patient: %d", patientID)
		}
		return nil, fmt.Errorf("failed to get realtime cache: %w", err)
	}

	var reading models.VitalsReading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal realtime data: %w", err)
	}

	return &reading, nil
}

// PublishAlertToStream 报警写入 Redis Stream，供下游消费（审计、集成）。
// 失败只记日志，不影响报警主链路。
func (c *CacheManager) PublishAlertToStream(ctx context.Context, alert *models.Alert) {
	id, err := redisutil.PublishJSONToStream(ctx, c.redisClient, c.config.Alert.Stream, alert)
	if err != nil {
		c.logger.Error("Failed to publish alert to stream",
			zap.Int64("alert_id", alert.ID),
			zap.Error(err),
		)
		return
	}

	c.logger.Debug("Alert published to stream",
		zap.Int64("alert_id", alert.ID),
		zap.String("stream_id", id),
	)
}
