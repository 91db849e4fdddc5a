package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"vitalwatch/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAlertsRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AlertsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewAlertsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestCreateAlert_Success(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	createdAt := time.Now()
	mock.ExpectQuery(`INSERT INTO alerts`).
		WithArgs(int64(42), models.SeverityCritical, "Oxygen saturation below limit (88%)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	alert := &models.Alert{
		PatientID: 42,
		Severity:  models.SeverityCritical,
		Message:   "Oxygen saturation below limit (88%)",
	}
	err := repo.CreateAlert(context.Background(), alert)

	require.NoError(t, err)
	assert.Equal(t, int64(7), alert.ID)
	assert.Equal(t, createdAt, alert.CreatedAt)
	assert.False(t, alert.Acknowledged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlert_InvalidSeverity(t *testing.T) {
	db, _, repo := setupAlertsRepo(t)
	defer db.Close()

	err := repo.CreateAlert(context.Background(), &models.Alert{
		PatientID: 42,
		Severity:  "fatal",
		Message:   "m",
	})

	assert.Error(t, err)
}

func TestGetAlert_NotFound(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT a.id`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	alert, err := repo.GetAlert(context.Background(), 99)

	assert.Nil(t, alert)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAcknowledgeAlert_Success(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	createdAt := time.Now().Add(-time.Minute)
	ackAt := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "type", "message", "created_at",
		"acknowledged", "acknowledged_by", "acknowledged_at",
	}).AddRow(int64(7), int64(42), models.SeverityWarning, "Heart rate above limit (110 BPM)",
		createdAt, true, int64(3), ackAt)

	mock.ExpectQuery(`UPDATE alerts`).
		WithArgs(int64(3), int64(7)).
		WillReturnRows(rows)

	alert, err := repo.AcknowledgeAlert(context.Background(), 7, 3)

	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, int64(3), *alert.AcknowledgedBy)
	require.NotNil(t, alert.AcknowledgedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert_AlreadyAcknowledged(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	// CAS 未命中
	mock.ExpectQuery(`UPDATE alerts`).
		WithArgs(int64(9), int64(7)).
		WillReturnError(sql.ErrNoRows)

	// 回查发现已被医生 3 确认，首个确认者保持不变
	firstAckAt := time.Now().Add(-time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "name", "type", "message", "created_at",
		"acknowledged", "acknowledged_by", "acknowledged_at",
	}).AddRow(int64(7), int64(42), "Ana Lima", models.SeverityWarning, "m",
		time.Now().Add(-time.Hour), true, int64(3), firstAckAt)

	mock.ExpectQuery(`SELECT a.id`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	alert, err := repo.AcknowledgeAlert(context.Background(), 7, 9)

	assert.ErrorIs(t, err, models.ErrAlreadyAcknowledged)
	require.NotNil(t, alert)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, int64(3), *alert.AcknowledgedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert_NotFound(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE alerts`).
		WithArgs(int64(9), int64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT a.id`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	alert, err := repo.AcknowledgeAlert(context.Background(), 404, 9)

	assert.Nil(t, alert)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListForDoctor_Success(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "name", "type", "message", "created_at",
		"acknowledged", "acknowledged_by", "acknowledged_at",
	}).
		AddRow(int64(8), int64(43), "Rui Costa", models.SeverityCritical, "Temperature above limit (38.9°C)",
			now, false, nil, nil).
		AddRow(int64(7), int64(42), "Ana Lima", models.SeverityWarning, "Heart rate above limit (110 BPM)",
			now.Add(-time.Minute), true, int64(3), now)

	mock.ExpectQuery(`SELECT a.id`).
		WithArgs(int64(3), 50).
		WillReturnRows(rows)

	alerts, err := repo.ListForDoctor(context.Background(), 3, 0)

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(8), alerts[0].ID)
	assert.Equal(t, "Rui Costa", alerts[0].PatientName)
	assert.Nil(t, alerts[0].AcknowledgedBy)
	assert.True(t, alerts[1].Acknowledged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForPatient_EmptyResult(t *testing.T) {
	db, mock, repo := setupAlertsRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "name", "type", "message", "created_at",
		"acknowledged", "acknowledged_by", "acknowledged_at",
	})

	mock.ExpectQuery(`SELECT a.id`).
		WithArgs(int64(42), 10).
		WillReturnRows(rows)

	alerts, err := repo.ListForPatient(context.Background(), 42, 10)

	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.NotNil(t, alerts)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 50, normalizeLimit(0))
	assert.Equal(t, 50, normalizeLimit(-1))
	assert.Equal(t, 50, normalizeLimit(500))
	assert.Equal(t, 10, normalizeLimit(10))
}
