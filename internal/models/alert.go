package models

import "time"

// 报警严重级别
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// 用户角色
const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// Alert 报警记录（对应 alerts 表，只追加不删除）
// 状态机: 创建(未确认) → 已确认(终态)，没有其他迁移。
type Alert struct {
	ID             int64      `json:"id" db:"id"`
	PatientID      int64      `json:"patient_id" db:"patient_id"`
	PatientName    string     `json:"patient_name,omitempty" db:"patient_name"` // 列表查询时 JOIN patients 得到
	Severity       string     `json:"type" db:"type"`                           // warning, critical
	Message        string     `json:"message" db:"message"`
	CreatedAt      time.Time  `json:"timestamp" db:"created_at"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	AcknowledgedBy *int64     `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
}
