package service

import (
	"context"
	"fmt"

	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/ws"

	"go.uber.org/zap"
)

// AlertService 报警台账服务。可见性规则在这里强制：
// 医生看名下所有患者，患者只看自己。
type AlertService struct {
	alertsRepo   *repository.AlertsRepository
	patientsRepo *repository.PatientsRepository
	hub          *ws.Hub
	logger       *zap.Logger
}

// NewAlertService 创建报警服务
func NewAlertService(
	alertsRepo *repository.AlertsRepository,
	patientsRepo *repository.PatientsRepository,
	hub *ws.Hub,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		alertsRepo:   alertsRepo,
		patientsRepo: patientsRepo,
		hub:          hub,
		logger:       logger,
	}
}

// List 按调用者身份返回可见报警，创建时间降序，单页上限 50。
// 每次调用都是新的读取，不是流式订阅。
func (s *AlertService) List(ctx context.Context, userID int64, role string, limit int) ([]*models.Alert, error) {
	switch role {
	case models.RoleDoctor:
		return s.alertsRepo.ListForDoctor(ctx, userID, limit)
	case models.RolePatient:
		return s.alertsRepo.ListForPatient(ctx, userID, limit)
	default:
		return nil, fmt.Errorf("%w: unsupported role %q", models.ErrAccessDenied, role)
	}
}

// Acknowledge 确认报警并向相关房间转发确认状态。
// 授权：调用者须对该报警的患者有可见性；重复确认返回 ErrAlreadyAcknowledged。
func (s *AlertService) Acknowledge(ctx context.Context, alertID, actorID int64, role string) (*models.Alert, error) {
	existing, err := s.alertsRepo.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.patientsRepo.CanAccessPatient(ctx, existing.PatientID, actorID, role)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: alert %d", models.ErrAccessDenied, alertID)
	}

	alert, err := s.alertsRepo.AcknowledgeAlert(ctx, alertID, actorID)
	if err != nil {
		return alert, err
	}

	// 台账迁移已提交，向房间广播新状态让其他在线端收敛
	info, lookupErr := s.patientsRepo.GetPatient(ctx, alert.PatientID)
	if lookupErr != nil {
		s.logger.Error("Failed to resolve patient for ack relay",
			zap.Int64("alert_id", alertID),
			zap.Error(lookupErr),
		)
		s.hub.RelayAcknowledgement(alert, 0)
	} else {
		s.hub.RelayAcknowledgement(alert, info.DoctorID)
	}

	s.logger.Info("Alert acknowledged",
		zap.Int64("alert_id", alertID),
		zap.Int64("acknowledged_by", actorID),
	)

	return alert, nil
}
