package service

import (
	"context"
	"fmt"
	"time"

	"vitalwatch/internal/cache"
	"vitalwatch/internal/evaluator"
	"vitalwatch/internal/metrics"
	"vitalwatch/internal/models"
	"vitalwatch/internal/notify"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/ws"

	"go.uber.org/zap"
)

// VitalsService 读数接入管道：
// 落库 → 更新实时缓存 → 阈值评估 → （越限时）报警落库 → 实时推送。
// 调用方须已完成对患者的授权（主治医生或患者本人）。
type VitalsService struct {
	vitalsRepo     *repository.VitalsRepository
	thresholdsRepo *repository.ThresholdsRepository
	patientsRepo   *repository.PatientsRepository
	alertsRepo     *repository.AlertsRepository
	cacheManager   *cache.CacheManager
	hub            *ws.Hub
	notifier       *notify.WebhookNotifier
	logger         *zap.Logger
}

// NewVitalsService 创建读数接入服务
func NewVitalsService(
	vitalsRepo *repository.VitalsRepository,
	thresholdsRepo *repository.ThresholdsRepository,
	patientsRepo *repository.PatientsRepository,
	alertsRepo *repository.AlertsRepository,
	cacheManager *cache.CacheManager,
	hub *ws.Hub,
	notifier *notify.WebhookNotifier,
	logger *zap.Logger,
) *VitalsService {
	return &VitalsService{
		vitalsRepo:     vitalsRepo,
		thresholdsRepo: thresholdsRepo,
		patientsRepo:   patientsRepo,
		alertsRepo:     alertsRepo,
		cacheManager:   cacheManager,
		hub:            hub,
		notifier:       notifier,
		logger:         logger,
	}
}

// Ingest 接入一条读数。返回落库后的读数和（若越限）创建的报警。
// 报警写入失败则整体失败且不发布，避免通知一条从未持久化的报警。
func (s *VitalsService) Ingest(ctx context.Context, patientID int64, input *models.VitalsInput) (*models.VitalsReading, *models.Alert, error) {
	reading, err := input.ToReading(patientID, time.Now())
	if err != nil {
		return nil, nil, err
	}

	if err := s.vitalsRepo.InsertReading(ctx, reading); err != nil {
		return nil, nil, err
	}
	metrics.ReadingsIngested.Inc()

	// 实时缓存尽力而为，不影响主链路
	if err := s.cacheManager.SetRealtimeReading(ctx, reading); err != nil {
		s.logger.Warn("Failed to update realtime cache",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
	}

	thresholds, err := s.loadThresholds(ctx, patientID)
	if err != nil {
		// 无阈值配置则只落库不评估（患者注册时会播种默认值，这里是兜底）
		s.logger.Warn("No thresholds for patient, skipping evaluation",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
		s.hub.PublishVitalUpdate(reading)
		return reading, nil, nil
	}

	var alert *models.Alert
	if result := evaluator.Evaluate(reading, thresholds); result != nil {
		metrics.BreachesDetected.WithLabelValues(result.Metric, result.Severity).Inc()

		alert = &models.Alert{
			PatientID: patientID,
			Severity:  result.Severity,
			Message:   result.Message,
		}
		// 先落库再发布：台账是事实源，写失败即中止
		if err := s.alertsRepo.CreateAlert(ctx, alert); err != nil {
			return nil, nil, fmt.Errorf("failed to record alert: %w", err)
		}
		s.publishAlert(ctx, alert)
	}

	s.hub.PublishVitalUpdate(reading)

	return reading, alert, nil
}

// History 查询患者的读数历史（趋势图用）
func (s *VitalsService) History(ctx context.Context, patientID int64, since time.Time) ([]*models.VitalsReading, error) {
	return s.vitalsRepo.ListSince(ctx, patientID, since)
}

// loadThresholds 先查缓存，未命中则回源数据库并回填
func (s *VitalsService) loadThresholds(ctx context.Context, patientID int64) (*models.ThresholdSet, error) {
	if cached, err := s.cacheManager.GetThresholds(ctx, patientID); err == nil {
		return cached, nil
	}

	thresholds, err := s.thresholdsRepo.GetThresholds(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheManager.SetThresholds(ctx, thresholds); err != nil {
		s.logger.Warn("Failed to cache thresholds",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
	}

	return thresholds, nil
}

// publishAlert 台账提交后的扇出：实时推送、Stream、危急 webhook。
// 任何一路失败都不影响其他路，也不影响已提交的台账。
func (s *VitalsService) publishAlert(ctx context.Context, alert *models.Alert) {
	info, err := s.patientsRepo.GetPatient(ctx, alert.PatientID)
	if err != nil {
		// 医生房间无法解析时退化为只推患者房间
		s.logger.Error("Failed to resolve patient for alert fan-out",
			zap.Int64("alert_id", alert.ID),
			zap.Error(err),
		)
		s.hub.PublishAlert(alert, 0)
	} else {
		alert.PatientName = info.Name
		s.hub.PublishAlert(alert, info.DoctorID)
	}

	s.cacheManager.PublishAlertToStream(ctx, alert)

	if alert.Severity == models.SeverityCritical && s.notifier.Enabled() {
		go func(a models.Alert) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.notifier.NotifyCritical(ctx, &a)
		}(*alert)
	}

	s.logger.Info("Alert created",
		zap.Int64("alert_id", alert.ID),
		zap.Int64("patient_id", alert.PatientID),
		zap.String("severity", alert.Severity),
		zap.String("message", alert.Message),
	)
}
