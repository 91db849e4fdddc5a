package service

import (
	"context"
	"fmt"

	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/ws"

	"go.uber.org/zap"
)

// WSEventService 实现 ws.EventHandler：入房授权和确认回路。
// 入房规则：患者只能进自己的患者房间；医生可进自己的医生房间和
// 名下患者的患者房间。
type WSEventService struct {
	hub          *ws.Hub
	patientsRepo *repository.PatientsRepository
	alertService *AlertService
	logger       *zap.Logger
}

// NewWSEventService 创建 websocket 事件服务
func NewWSEventService(
	hub *ws.Hub,
	patientsRepo *repository.PatientsRepository,
	alertService *AlertService,
	logger *zap.Logger,
) *WSEventService {
	return &WSEventService{
		hub:          hub,
		patientsRepo: patientsRepo,
		alertService: alertService,
		logger:       logger,
	}
}

var _ ws.EventHandler = (*WSEventService)(nil)

// HandleJoinDoctorRoom 医生只能进自己的医生房间
func (s *WSEventService) HandleJoinDoctorRoom(ctx context.Context, client *ws.Client, doctorID int64) error {
	if client.Role != models.RoleDoctor || client.UserID != doctorID {
		return fmt.Errorf("%w: doctor room %d", models.ErrAccessDenied, doctorID)
	}

	s.hub.JoinRoom(client.ID, ws.DoctorRoom(doctorID))
	return nil
}

// HandleJoinPatientRoom 患者进自己的房间；医生进名下患者的房间
func (s *WSEventService) HandleJoinPatientRoom(ctx context.Context, client *ws.Client, patientID int64) error {
	allowed, err := s.patientsRepo.CanAccessPatient(ctx, patientID, client.UserID, client.Role)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: patient room %d", models.ErrAccessDenied, patientID)
	}

	s.hub.JoinRoom(client.ID, ws.PatientRoom(patientID))
	return nil
}

// HandleAcknowledgeAlert 确认经由台账提交后再广播（与 HTTP 确认同一条路径）
func (s *WSEventService) HandleAcknowledgeAlert(ctx context.Context, client *ws.Client, alertID int64) error {
	_, err := s.alertService.Acknowledge(ctx, alertID, client.UserID, client.Role)
	return err
}
