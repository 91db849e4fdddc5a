package models

import (
	"fmt"
	"time"
)

// VitalsReading 生命体征读数（对应 vital_records 表，写入后不可变）
type VitalsReading struct {
	ID           int64     `json:"id" db:"id"`
	PatientID    int64     `json:"patient_id" db:"patient_id"`
	SpO2         int       `json:"spo2" db:"spo2"`               // 血氧饱和度（0-100%）
	BPM          int       `json:"bpm" db:"bpm"`                 // 心率（次/分钟）
	TemperatureC float64   `json:"temperature" db:"temperature"` // 体温（°C）
	RecordedAt   time.Time `json:"recorded_at" db:"recorded_at"`
}

// Validate 校验读数完整性（三项指标缺一不可，由入口拒绝，不进入评估）
func (r *VitalsReading) Validate() error {
	if r.PatientID <= 0 {
		return fmt.Errorf("%w: patient_id is required", ErrValidation)
	}
	if r.SpO2 < 0 || r.SpO2 > 100 {
		return fmt.Errorf("%w: spo2 must be between 0 and 100", ErrValidation)
	}
	if r.BPM <= 0 {
		return fmt.Errorf("%w: bpm must be a positive integer", ErrValidation)
	}
	if r.TemperatureC <= 0 {
		return fmt.Errorf("%w: temperature must be positive", ErrValidation)
	}
	return nil
}

// VitalsInput 入口提交的读数（三项均为指针以区分"缺失"与"零值"）
type VitalsInput struct {
	SpO2         *int     `json:"spo2"`
	BPM          *int     `json:"bpm"`
	TemperatureC *float64 `json:"temperature"`
}

// ToReading 将输入转换为读数；任一指标缺失则返回 ErrValidation
func (in *VitalsInput) ToReading(patientID int64, recordedAt time.Time) (*VitalsReading, error) {
	if in.SpO2 == nil || in.BPM == nil || in.TemperatureC == nil {
		return nil, fmt.Errorf("%w: all vital signs are required", ErrValidation)
	}
	reading := &VitalsReading{
		PatientID:    patientID,
		SpO2:         *in.SpO2,
		BPM:          *in.BPM,
		TemperatureC: *in.TemperatureC,
		RecordedAt:   recordedAt,
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}
	return reading, nil
}
