package models

import (
	"fmt"
	"time"
)

// ThresholdSet 患者阈值配置（对应 vital_thresholds 表，每患者一条，最新生效）
type ThresholdSet struct {
	PatientID int64     `json:"patient_id" db:"patient_id"`
	SpO2Min   int       `json:"spo2_min" db:"spo2_min"`
	SpO2Max   int       `json:"spo2_max" db:"spo2_max"`
	BPMMin    int       `json:"bpm_min" db:"bpm_min"`
	BPMMax    int       `json:"bpm_max" db:"bpm_max"`
	TempMin   float64   `json:"temperature_min" db:"temperature_min"`
	TempMax   float64   `json:"temperature_max" db:"temperature_max"`
	UpdatedBy int64     `json:"updated_by" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultThresholds 患者注册时的默认阈值
func DefaultThresholds(patientID, doctorID int64) *ThresholdSet {
	return &ThresholdSet{
		PatientID: patientID,
		SpO2Min:   95,
		SpO2Max:   100,
		BPMMin:    60,
		BPMMax:    100,
		TempMin:   36.0,
		TempMax:   37.5,
		UpdatedBy: doctorID,
		UpdatedAt: time.Now(),
	}
}

// Validate 校验每组指标 min <= max，违反则在持久化前拒绝
func (t *ThresholdSet) Validate() error {
	if t.SpO2Min > t.SpO2Max {
		return fmt.Errorf("%w: spo2_min must not exceed spo2_max", ErrValidation)
	}
	if t.BPMMin > t.BPMMax {
		return fmt.Errorf("%w: bpm_min must not exceed bpm_max", ErrValidation)
	}
	if t.TempMin > t.TempMax {
		return fmt.Errorf("%w: temperature_min must not exceed temperature_max", ErrValidation)
	}
	return nil
}
