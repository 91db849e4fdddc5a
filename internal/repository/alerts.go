package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalwatch/internal/models"

	"go.uber.org/zap"
)

// AlertsRepository 报警台账仓库（append-only 审计记录）
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建报警台账仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAlert 创建未确认报警，回填服务端分配的 id 和创建时间
func (r *AlertsRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.PatientID <= 0 {
		return fmt.Errorf("patient_id is required")
	}
	if alert.Severity != models.SeverityWarning && alert.Severity != models.SeverityCritical {
		return fmt.Errorf("invalid severity: %s", alert.Severity)
	}

	query := `
		INSERT INTO alerts (patient_id, type, message, created_at, acknowledged)
		VALUES ($1, $2, $3, NOW(), false)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		alert.PatientID,
		alert.Severity,
		alert.Message,
	).Scan(&alert.ID, &alert.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	alert.Acknowledged = false
	return nil
}

// GetAlert 根据 id 获取单个报警
func (r *AlertsRepository) GetAlert(ctx context.Context, alertID int64) (*models.Alert, error) {
	if alertID <= 0 {
		return nil, fmt.Errorf("%w: alert id is required", models.ErrValidation)
	}

	query := `
		SELECT a.id, a.patient_id, p.name, a.type, a.message, a.created_at,
		       a.acknowledged, a.acknowledged_by, a.acknowledged_at
		FROM alerts a
		JOIN patients p ON a.patient_id = p.id
		WHERE a.id = $1
	`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: alert %d", models.ErrNotFound, alertID)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// AcknowledgeAlert 确认报警：false→true 的一次性迁移。
// check-and-set 保证并发确认只有一个成功；重复确认返回 ErrAlreadyAcknowledged，
// 且不覆盖首个确认者的 acknowledged_by/acknowledged_at。
func (r *AlertsRepository) AcknowledgeAlert(ctx context.Context, alertID, actorID int64) (*models.Alert, error) {
	if alertID <= 0 {
		return nil, fmt.Errorf("%w: alert id is required", models.ErrValidation)
	}
	if actorID <= 0 {
		return nil, fmt.Errorf("%w: actor id is required", models.ErrValidation)
	}

	query := `
		UPDATE alerts
		SET acknowledged = true, acknowledged_by = $1, acknowledged_at = NOW()
		WHERE id = $2 AND acknowledged = false
		RETURNING id, patient_id, type, message, created_at,
		          acknowledged, acknowledged_by, acknowledged_at
	`

	var alert models.Alert
	var ackBy sql.NullInt64
	var ackAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, actorID, alertID).Scan(
		&alert.ID,
		&alert.PatientID,
		&alert.Severity,
		&alert.Message,
		&alert.CreatedAt,
		&alert.Acknowledged,
		&ackBy,
		&ackAt,
	)

	if err == sql.ErrNoRows {
		// CAS 未命中：要么不存在，要么已被确认
		existing, getErr := r.GetAlert(ctx, alertID)
		if getErr != nil {
			return nil, getErr
		}
		return existing, fmt.Errorf("%w: alert %d", models.ErrAlreadyAcknowledged, alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	if ackBy.Valid {
		alert.AcknowledgedBy = &ackBy.Int64
	}
	if ackAt.Valid {
		alert.AcknowledgedAt = &ackAt.Time
	}

	return &alert, nil
}

// ListForDoctor 医生可见其名下所有患者的报警，按创建时间降序
func (r *AlertsRepository) ListForDoctor(ctx context.Context, doctorID int64, limit int) ([]*models.Alert, error) {
	if doctorID <= 0 {
		return nil, fmt.Errorf("%w: doctor id is required", models.ErrValidation)
	}

	query := `
		SELECT a.id, a.patient_id, p.name, a.type, a.message, a.created_at,
		       a.acknowledged, a.acknowledged_by, a.acknowledged_at
		FROM alerts a
		JOIN patients p ON a.patient_id = p.id
		WHERE p.doctor_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2
	`

	return r.listAlerts(ctx, query, doctorID, normalizeLimit(limit))
}

// ListForPatient 患者只能看到自己的报警，按创建时间降序
func (r *AlertsRepository) ListForPatient(ctx context.Context, patientID int64, limit int) ([]*models.Alert, error) {
	if patientID <= 0 {
		return nil, fmt.Errorf("%w: patient id is required", models.ErrValidation)
	}

	query := `
		SELECT a.id, a.patient_id, p.name, a.type, a.message, a.created_at,
		       a.acknowledged, a.acknowledged_by, a.acknowledged_at
		FROM alerts a
		JOIN patients p ON a.patient_id = p.id
		WHERE a.patient_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2
	`

	return r.listAlerts(ctx, query, patientID, normalizeLimit(limit))
}

func (r *AlertsRepository) listAlerts(ctx context.Context, query string, ownerID int64, limit int) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var alert models.Alert
	var ackBy sql.NullInt64
	var ackAt sql.NullTime

	err := row.Scan(
		&alert.ID,
		&alert.PatientID,
		&alert.PatientName,
		&alert.Severity,
		&alert.Message,
		&alert.CreatedAt,
		&alert.Acknowledged,
		&ackBy,
		&ackAt,
	)
	if err != nil {
		return nil, err
	}

	if ackBy.Valid {
		alert.AcknowledgedBy = &ackBy.Int64
	}
	if ackAt.Valid {
		alert.AcknowledgedAt = &ackAt.Time
	}

	return &alert, nil
}

const defaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
