package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalwatch/internal/models"

	"go.uber.org/zap"
)

// ThresholdsRepository 阈值配置仓库（每患者一条，最新生效）
type ThresholdsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewThresholdsRepository 创建阈值配置仓库
func NewThresholdsRepository(db *sql.DB, logger *zap.Logger) *ThresholdsRepository {
	return &ThresholdsRepository{
		db:     db,
		logger: logger,
	}
}

// GetThresholds 获取患者当前生效的阈值
func (r *ThresholdsRepository) GetThresholds(ctx context.Context, patientID int64) (*models.ThresholdSet, error) {
	if patientID <= 0 {
		return nil, fmt.Errorf("%w: patient id is required", models.ErrValidation)
	}

	query := `
		SELECT patient_id, spo2_min, spo2_max, bpm_min, bpm_max,
		       temperature_min, temperature_max, updated_by, updated_at
		FROM vital_thresholds
		WHERE patient_id = $1
	`

	var t models.ThresholdSet
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&t.PatientID,
		&t.SpO2Min,
		&t.SpO2Max,
		&t.BPMMin,
		&t.BPMMax,
		&t.TempMin,
		&t.TempMax,
		&t.UpdatedBy,
		&t.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: thresholds for patient %d", models.ErrNotFound, patientID)
		}
		return nil, fmt.Errorf("failed to get thresholds: %w", err)
	}

	return &t, nil
}

// UpsertThresholds 写入阈值（存在则覆盖，最新生效）。
// min <= max 的校验在持久化前完成，违反即拒绝。
func (r *ThresholdsRepository) UpsertThresholds(ctx context.Context, t *models.ThresholdSet) error {
	if t == nil {
		return fmt.Errorf("thresholds are required")
	}
	if t.PatientID <= 0 {
		return fmt.Errorf("%w: patient id is required", models.ErrValidation)
	}
	if err := t.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO vital_thresholds
			(patient_id, spo2_min, spo2_max, bpm_min, bpm_max,
			 temperature_min, temperature_max, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (patient_id) DO UPDATE SET
			spo2_min = EXCLUDED.spo2_min,
			spo2_max = EXCLUDED.spo2_max,
			bpm_min = EXCLUDED.bpm_min,
			bpm_max = EXCLUDED.bpm_max,
			temperature_min = EXCLUDED.temperature_min,
			temperature_max = EXCLUDED.temperature_max,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		t.PatientID,
		t.SpO2Min,
		t.SpO2Max,
		t.BPMMin,
		t.BPMMax,
		t.TempMin,
		t.TempMax,
		t.UpdatedBy,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert thresholds: %w", err)
	}

	r.logger.Info("Thresholds updated",
		zap.Int64("patient_id", t.PatientID),
		zap.Int64("updated_by", t.UpdatedBy),
	)

	return nil
}
