package service

import (
	"context"
	"fmt"
	"time"

	"vitalwatch/internal/cache"
	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"

	"go.uber.org/zap"
)

// ThresholdService 阈值配置服务。只有主治医生可以修改阈值。
type ThresholdService struct {
	thresholdsRepo *repository.ThresholdsRepository
	patientsRepo   *repository.PatientsRepository
	cacheManager   *cache.CacheManager
	logger         *zap.Logger
}

// NewThresholdService 创建阈值服务
func NewThresholdService(
	thresholdsRepo *repository.ThresholdsRepository,
	patientsRepo *repository.PatientsRepository,
	cacheManager *cache.CacheManager,
	logger *zap.Logger,
) *ThresholdService {
	return &ThresholdService{
		thresholdsRepo: thresholdsRepo,
		patientsRepo:   patientsRepo,
		cacheManager:   cacheManager,
		logger:         logger,
	}
}

// Get 读取患者当前阈值；调用者须对患者有可见性
func (s *ThresholdService) Get(ctx context.Context, patientID, userID int64, role string) (*models.ThresholdSet, error) {
	allowed, err := s.patientsRepo.CanAccessPatient(ctx, patientID, userID, role)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: patient %d", models.ErrAccessDenied, patientID)
	}

	return s.thresholdsRepo.GetThresholds(ctx, patientID)
}

// Update 覆盖患者阈值。仅主治医生可改；min <= max 在持久化前校验。
// 成功后失效缓存，使下一次评估读到新配置。
func (s *ThresholdService) Update(ctx context.Context, t *models.ThresholdSet, userID int64, role string) error {
	if role != models.RoleDoctor {
		return fmt.Errorf("%w: only doctors may update thresholds", models.ErrAccessDenied)
	}

	assigned, err := s.patientsRepo.IsPatientOfDoctor(ctx, t.PatientID, userID)
	if err != nil {
		return err
	}
	if !assigned {
		return fmt.Errorf("%w: patient %d", models.ErrAccessDenied, t.PatientID)
	}

	t.UpdatedBy = userID
	t.UpdatedAt = time.Now()
	if err := s.thresholdsRepo.UpsertThresholds(ctx, t); err != nil {
		return err
	}

	if err := s.cacheManager.InvalidateThresholds(ctx, t.PatientID); err != nil {
		s.logger.Warn("Failed to invalidate threshold cache",
			zap.Int64("patient_id", t.PatientID),
			zap.Error(err),
		)
	}

	return nil
}
