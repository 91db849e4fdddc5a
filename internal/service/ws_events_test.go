package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/ws"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupWSEvents(t *testing.T) (sqlmock.Sqlmock, *ws.Hub, *WSEventService) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	hub := ws.NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	patientsRepo := repository.NewPatientsRepository(db, logger)
	alertService := NewAlertService(repository.NewAlertsRepository(db, logger), patientsRepo, hub, logger)
	svc := NewWSEventService(hub, patientsRepo, alertService, logger)

	return mock, hub, svc
}

func registerClient(t *testing.T, hub *ws.Hub, id string, userID int64, role string) *ws.Client {
	t.Helper()
	client := ws.NewClient(id, userID, role, hub, nil, nil, zap.NewNop())
	hub.Register(client)
	return client
}

func TestWSEvents_JoinDoctorRoom_Self(t *testing.T) {
	_, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "d1", 3, models.RoleDoctor)

	require.Eventually(t, func() bool {
		if err := svc.HandleJoinDoctorRoom(context.Background(), client, 3); err != nil {
			return false
		}
		return len(hub.MembersOf(ws.DoctorRoom(3))) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSEvents_JoinDoctorRoom_OtherDoctorDenied(t *testing.T) {
	_, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "d1", 3, models.RoleDoctor)

	err := svc.HandleJoinDoctorRoom(context.Background(), client, 9)

	assert.ErrorIs(t, err, models.ErrAccessDenied)
	assert.Empty(t, hub.MembersOf(ws.DoctorRoom(9)))
}

func TestWSEvents_JoinDoctorRoom_PatientDenied(t *testing.T) {
	_, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "p1", 42, models.RolePatient)

	err := svc.HandleJoinDoctorRoom(context.Background(), client, 42)

	assert.ErrorIs(t, err, models.ErrAccessDenied)
}

func TestWSEvents_JoinPatientRoom_Self(t *testing.T) {
	_, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "p1", 42, models.RolePatient)

	require.Eventually(t, func() bool {
		if err := svc.HandleJoinPatientRoom(context.Background(), client, 42); err != nil {
			return false
		}
		return len(hub.MembersOf(ws.PatientRoom(42))) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSEvents_JoinPatientRoom_OtherPatientDenied(t *testing.T) {
	_, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "p1", 42, models.RolePatient)

	err := svc.HandleJoinPatientRoom(context.Background(), client, 43)

	assert.ErrorIs(t, err, models.ErrAccessDenied)
	assert.Empty(t, hub.MembersOf(ws.PatientRoom(43)))
}

func TestWSEvents_JoinPatientRoom_OwningDoctor(t *testing.T) {
	mock, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "d1", 3, models.RoleDoctor)

	require.Eventually(t, func() bool {
		mock.ExpectQuery(`SELECT 1 FROM patients`).
			WithArgs(int64(42), int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		if err := svc.HandleJoinPatientRoom(context.Background(), client, 42); err != nil {
			return false
		}
		return len(hub.MembersOf(ws.PatientRoom(42))) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSEvents_JoinPatientRoom_UnrelatedDoctorDenied(t *testing.T) {
	mock, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "d1", 9, models.RoleDoctor)

	mock.ExpectQuery(`SELECT 1 FROM patients`).
		WithArgs(int64(42), int64(9)).
		WillReturnError(sql.ErrNoRows)

	err := svc.HandleJoinPatientRoom(context.Background(), client, 42)

	assert.ErrorIs(t, err, models.ErrAccessDenied)
	assert.Empty(t, hub.MembersOf(ws.PatientRoom(42)))
}

func TestWSEvents_AcknowledgeAlert_DelegatesAuthorization(t *testing.T) {
	mock, hub, svc := setupWSEvents(t)
	client := registerClient(t, hub, "p1", 43, models.RolePatient)

	// 报警属于患者 42，患者 43 无权确认
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "name", "type", "message", "created_at",
		"acknowledged", "acknowledged_by", "acknowledged_at",
	}).AddRow(int64(7), int64(42), "Ana Lima", models.SeverityWarning, "m", time.Now(), false, nil, nil)
	mock.ExpectQuery(`SELECT a.id`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	err := svc.HandleAcknowledgeAlert(context.Background(), client, 7)

	assert.ErrorIs(t, err, models.ErrAccessDenied)
}
