package evaluator

import (
	"fmt"

	"vitalwatch/internal/models"
)

// 严重级别判定的固定临界值（与阈值配置无关，由临床规则决定）
const (
	criticalSpO2Below = 90   // SpO2 低于下限且 < 90% 为 critical
	criticalBPMAbove  = 120  // 心率高于上限且 > 120 为 critical
	criticalTempAbove = 38.5 // 体温高于上限且 > 38.5°C 为 critical
)

// BreachResult 越限判定结果
type BreachResult struct {
	Metric   string `json:"metric"`   // spo2, bpm, temperature
	Severity string `json:"severity"` // warning, critical
	Message  string `json:"message"`  // 含指标、方向、具体数值
}

// breachCheck 单项越限判定。命中返回结果，未命中返回 nil。
type breachCheck struct {
	Name  string
	Check func(r *models.VitalsReading, t *models.ThresholdSet) *BreachResult
}

// EvaluationOrder 判定顺序（固定，先命中者生效，每条读数至多产生一条报警）。
// 顺序即优先级：血氧 > 心率过低 > 心率过高 > 体温过低 > 体温过高。
var EvaluationOrder = []breachCheck{
	{
		Name: "spo2_low",
		Check: func(r *models.VitalsReading, t *models.ThresholdSet) *BreachResult {
			if r.SpO2 >= t.SpO2Min {
				return nil
			}
			severity := models.SeverityWarning
			if r.SpO2 < criticalSpO2Below {
				severity = models.SeverityCritical
			}
			return &BreachResult{
				Metric:   "spo2",
				Severity: severity,
				Message:  fmt.Sprintf("Oxygen saturation below limit (%d%%)", r.SpO2),
			}
		},
	},
	{
		Name: "bpm_low",
		Check: func(r *models.VitalsReading, t *models.ThresholdSet) *BreachResult {
			if r.BPM >= t.BPMMin {
				return nil
			}
			return &BreachResult{
				Metric:   "bpm",
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("Heart rate below limit (%d BPM)", r.BPM),
			}
		},
	},
	{
		Name: "bpm_high",
		Check: func(r *models.VitalsReading, t *models.ThresholdSet) *BreachResult {
			if r.BPM <= t.BPMMax {
				return nil
			}
			severity := models.SeverityWarning
			if r.BPM > criticalBPMAbove {
				severity = models.SeverityCritical
			}
			return &BreachResult{
				Metric:   "bpm",
				Severity: severity,
				Message:  fmt.Sprintf("Heart rate above limit (%d BPM)", r.BPM),
			}
		},
	},
	{
		Name: "temperature_low",
		Check: func(r *models.VitalsReading, t *models.ThresholdSet) *BreachResult {
			if r.TemperatureC >= t.TempMin {
				return nil
			}
			return &BreachResult{
				Metric:   "temperature",
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("Temperature below limit (%.1f°C)", r.TemperatureC),
			}
		},
	},
	{
		Name: "temperature_high",
		Check: func(r *models.VitalsReading, t *models.ThresholdSet) *BreachResult {
			if r.TemperatureC <= t.TempMax {
				return nil
			}
			severity := models.SeverityWarning
			if r.TemperatureC > criticalTempAbove {
				severity = models.SeverityCritical
			}
			return &BreachResult{
				Metric:   "temperature",
				Severity: severity,
				Message:  fmt.Sprintf("Temperature above limit (%.1f°C)", r.TemperatureC),
			}
		},
	},
}

// Evaluate 依序评估读数，返回首个越限结果；全部在限内返回 nil。
// 纯函数，无 I/O、无共享状态。
func Evaluate(reading *models.VitalsReading, thresholds *models.ThresholdSet) *BreachResult {
	if reading == nil || thresholds == nil {
		return nil
	}
	for _, check := range EvaluationOrder {
		if result := check.Check(reading, thresholds); result != nil {
			return result
		}
	}
	return nil
}
