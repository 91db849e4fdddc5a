package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitalwatch/internal/models"

	"go.uber.org/zap"
)

// VitalsRepository 生命体征历史仓库
type VitalsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVitalsRepository 创建生命体征历史仓库
func NewVitalsRepository(db *sql.DB, logger *zap.Logger) *VitalsRepository {
	return &VitalsRepository{
		db:     db,
		logger: logger,
	}
}

// InsertReading 写入一条读数，回填服务端分配的 id
func (r *VitalsRepository) InsertReading(ctx context.Context, reading *models.VitalsReading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if err := reading.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO vital_records (patient_id, spo2, bpm, temperature, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		reading.PatientID,
		reading.SpO2,
		reading.BPM,
		reading.TemperatureC,
		reading.RecordedAt,
	).Scan(&reading.ID)

	if err != nil {
		return fmt.Errorf("failed to insert vital record: %w", err)
	}

	return nil
}

// ListSince 查询患者某时间点之后的读数，按记录时间升序（用于趋势图）
func (r *VitalsRepository) ListSince(ctx context.Context, patientID int64, since time.Time) ([]*models.VitalsReading, error) {
	if patientID <= 0 {
		return nil, fmt.Errorf("%w: patient id is required", models.ErrValidation)
	}

	query := `
		SELECT id, patient_id, spo2, bpm, temperature, recorded_at
		FROM vital_records
		WHERE patient_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query vital records: %w", err)
	}
	defer rows.Close()

	readings := []*models.VitalsReading{}
	for rows.Next() {
		var reading models.VitalsReading
		err := rows.Scan(
			&reading.ID,
			&reading.PatientID,
			&reading.SpO2,
			&reading.BPM,
			&reading.TemperatureC,
			&reading.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vital record: %w", err)
		}
		readings = append(readings, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vital records: %w", err)
	}

	return readings, nil
}
