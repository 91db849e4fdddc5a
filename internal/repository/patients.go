package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vitalwatch/internal/models"

	"go.uber.org/zap"
)

// PatientInfo 患者基本信息（授权判断所需的最小集合）
type PatientInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	DoctorID int64  `json:"doctor_id"`
}

// PatientsRepository 患者/医生关系仓库。
// 报警管道依赖它完成两件事：确认调用者对患者的可见性、解析患者所属医生房间。
type PatientsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPatientsRepository 创建患者仓库
func NewPatientsRepository(db *sql.DB, logger *zap.Logger) *PatientsRepository {
	return &PatientsRepository{
		db:     db,
		logger: logger,
	}
}

// CreatePatient 创建患者并播种默认阈值（同一事务，二者同生同灭）。
// 有默认阈值兜底，患者的第一条读数就能进入评估。
func (r *PatientsRepository) CreatePatient(ctx context.Context, name string, doctorID int64) (*PatientInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: patient name is required", models.ErrValidation)
	}
	if doctorID <= 0 {
		return nil, fmt.Errorf("%w: doctor id is required", models.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var patientID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO patients (name, doctor_id) VALUES ($1, $2) RETURNING id`,
		name, doctorID,
	).Scan(&patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	defaults := models.DefaultThresholds(patientID, doctorID)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vital_thresholds
			(patient_id, spo2_min, spo2_max, bpm_min, bpm_max,
			 temperature_min, temperature_max, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`,
		defaults.PatientID,
		defaults.SpO2Min,
		defaults.SpO2Max,
		defaults.BPMMin,
		defaults.BPMMax,
		defaults.TempMin,
		defaults.TempMax,
		defaults.UpdatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to seed default thresholds: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit patient creation: %w", err)
	}

	r.logger.Info("Patient created with default thresholds",
		zap.Int64("patient_id", patientID),
		zap.Int64("doctor_id", doctorID),
	)

	return &PatientInfo{ID: patientID, Name: name, DoctorID: doctorID}, nil
}

// GetPatient 获取患者信息（含所属医生）
func (r *PatientsRepository) GetPatient(ctx context.Context, patientID int64) (*PatientInfo, error) {
	if patientID <= 0 {
		return nil, fmt.Errorf("%w: patient id is required", models.ErrValidation)
	}

	query := `SELECT id, name, doctor_id FROM patients WHERE id = $1`

	var info PatientInfo
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(&info.ID, &info.Name, &info.DoctorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: patient %d", models.ErrNotFound, patientID)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return &info, nil
}

// IsPatientOfDoctor 判断患者是否属于指定医生
func (r *PatientsRepository) IsPatientOfDoctor(ctx context.Context, patientID, doctorID int64) (bool, error) {
	if patientID <= 0 || doctorID <= 0 {
		return false, fmt.Errorf("%w: patient id and doctor id are required", models.ErrValidation)
	}

	query := `SELECT 1 FROM patients WHERE id = $1 AND doctor_id = $2`

	var one int
	err := r.db.QueryRowContext(ctx, query, patientID, doctorID).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check patient ownership: %w", err)
	}

	return true, nil
}

// CanAccessPatient 统一的患者可见性判断：
// 医生须为主治医生，患者仅能访问自己。
func (r *PatientsRepository) CanAccessPatient(ctx context.Context, patientID, userID int64, role string) (bool, error) {
	switch role {
	case models.RoleDoctor:
		return r.IsPatientOfDoctor(ctx, patientID, userID)
	case models.RolePatient:
		return patientID == userID, nil
	default:
		return false, nil
	}
}
