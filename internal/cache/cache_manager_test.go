package cache

import (
	"context"
	"testing"
	"time"

	"vitalwatch/internal/config"
	"vitalwatch/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCacheManager(t *testing.T) (*miniredis.Miniredis, *CacheManager) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Alert.Cache.ThresholdKeyPrefix = "vitalwatch:patient:"
	cfg.Alert.Cache.ThresholdSuffix = ":thresholds"
	cfg.Alert.Cache.RealtimeKeyPrefix = "vitalwatch:patient:"
	cfg.Alert.Cache.RealtimeSuffix = ":realtime"
	cfg.Alert.Cache.ThresholdTTL = 60
	cfg.Alert.Cache.RealtimeTTL = 30
	cfg.Alert.Stream = "vitalwatch:alerts:stream"

	return mr, NewCacheManager(cfg, client, zap.NewNop())
}

func TestCacheManager_ThresholdRoundTrip(t *testing.T) {
	mr, cm := setupCacheManager(t)
	ctx := context.Background()

	thresholds := &models.ThresholdSet{
		PatientID: 42,
		SpO2Min:   95,
		SpO2Max:   100,
		BPMMin:    60,
		BPMMax:    100,
		TempMin:   36.0,
		TempMax:   37.5,
	}

	require.NoError(t, cm.SetThresholds(ctx, thresholds))
	assert.True(t, mr.Exists("vitalwatch:patient:42:thresholds"))

	cached, err := cm.GetThresholds(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 95, cached.SpO2Min)
	assert.Equal(t, 37.5, cached.TempMax)
}

func TestCacheManager_GetThresholds_Miss(t *testing.T) {
	_, cm := setupCacheManager(t)

	cached, err := cm.GetThresholds(context.Background(), 99)

	assert.Nil(t, cached)
	assert.Error(t, err)
}

func TestCacheManager_InvalidateThresholds(t *testing.T) {
	mr, cm := setupCacheManager(t)
	ctx := context.Background()

	require.NoError(t, cm.SetThresholds(ctx, &models.ThresholdSet{PatientID: 42, SpO2Min: 95, SpO2Max: 100}))
	require.NoError(t, cm.InvalidateThresholds(ctx, 42))

	assert.False(t, mr.Exists("vitalwatch:patient:42:thresholds"))
}

func TestCacheManager_ThresholdTTLExpires(t *testing.T) {
	mr, cm := setupCacheManager(t)
	ctx := context.Background()

	require.NoError(t, cm.SetThresholds(ctx, &models.ThresholdSet{PatientID: 42, SpO2Min: 95, SpO2Max: 100}))

	mr.FastForward(61 * time.Second)

	_, err := cm.GetThresholds(ctx, 42)
	assert.Error(t, err)
}

func TestCacheManager_RealtimeRoundTrip(t *testing.T) {
	mr, cm := setupCacheManager(t)
	ctx := context.Background()

	reading := &models.VitalsReading{
		ID:           100,
		PatientID:    42,
		SpO2:         97,
		BPM:          72,
		TemperatureC: 36.6,
		RecordedAt:   time.Now().UTC(),
	}

	require.NoError(t, cm.SetRealtimeReading(ctx, reading))
	assert.True(t, mr.Exists("vitalwatch:patient:42:realtime"))

	cached, err := cm.GetRealtimeReading(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 97, cached.SpO2)
	assert.Equal(t, 72, cached.BPM)
}

func TestCacheManager_PublishAlertToStream(t *testing.T) {
	mr, cm := setupCacheManager(t)

	cm.PublishAlertToStream(context.Background(), &models.Alert{
		ID:        7,
		PatientID: 42,
		Severity:  models.SeverityCritical,
		Message:   "Oxygen saturation below limit (88%)",
		CreatedAt: time.Now(),
	})

	entries, err := mr.Stream("vitalwatch:alerts:stream")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
