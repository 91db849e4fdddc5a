package evaluator

import (
	"testing"
	"time"

	"vitalwatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultThresholds() *models.ThresholdSet {
	return &models.ThresholdSet{
		PatientID: 42,
		SpO2Min:   95,
		SpO2Max:   100,
		BPMMin:    60,
		BPMMax:    100,
		TempMin:   36.0,
		TempMax:   37.5,
	}
}

func reading(spo2, bpm int, temp float64) *models.VitalsReading {
	return &models.VitalsReading{
		PatientID:    42,
		SpO2:         spo2,
		BPM:          bpm,
		TemperatureC: temp,
		RecordedAt:   time.Now(),
	}
}

func TestEvaluate_AllInRange(t *testing.T) {
	result := Evaluate(reading(97, 72, 36.6), defaultThresholds())
	assert.Nil(t, result)
}

func TestEvaluate_BoundaryValuesAreInRange(t *testing.T) {
	// 阈值边界本身不算越限
	assert.Nil(t, Evaluate(reading(95, 60, 36.0), defaultThresholds()))
	assert.Nil(t, Evaluate(reading(100, 100, 37.5), defaultThresholds()))
}

func TestEvaluate_SpO2LowCritical(t *testing.T) {
	result := Evaluate(reading(88, 72, 36.6), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "spo2", result.Metric)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.Equal(t, "Oxygen saturation below limit (88%)", result.Message)
}

func TestEvaluate_SpO2LowWarning(t *testing.T) {
	// 低于下限但未低于 90，只到 warning
	result := Evaluate(reading(92, 72, 36.6), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "spo2", result.Metric)
	assert.Equal(t, models.SeverityWarning, result.Severity)
}

func TestEvaluate_BPMHighWarning(t *testing.T) {
	result := Evaluate(reading(97, 110, 36.6), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "bpm", result.Metric)
	assert.Equal(t, models.SeverityWarning, result.Severity)
	assert.Equal(t, "Heart rate above limit (110 BPM)", result.Message)
}

func TestEvaluate_BPMHighCritical(t *testing.T) {
	result := Evaluate(reading(97, 130, 36.6), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, models.SeverityCritical, result.Severity)
}

func TestEvaluate_BPMLowAlwaysWarning(t *testing.T) {
	result := Evaluate(reading(97, 40, 36.6), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "bpm", result.Metric)
	assert.Equal(t, models.SeverityWarning, result.Severity)
	assert.Equal(t, "Heart rate below limit (40 BPM)", result.Message)
}

func TestEvaluate_TemperatureHigh(t *testing.T) {
	result := Evaluate(reading(97, 72, 38.9), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "temperature", result.Metric)
	assert.Equal(t, models.SeverityCritical, result.Severity)
	assert.Equal(t, "Temperature above limit (38.9°C)", result.Message)
}

func TestEvaluate_TemperatureHighWarning(t *testing.T) {
	// 高于上限但未超过 38.5
	result := Evaluate(reading(97, 72, 38.0), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "temperature", result.Metric)
	assert.Equal(t, models.SeverityWarning, result.Severity)
}

func TestEvaluate_TemperatureLow(t *testing.T) {
	result := Evaluate(reading(97, 72, 35.2), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "temperature", result.Metric)
	assert.Equal(t, models.SeverityWarning, result.Severity)
	assert.Equal(t, "Temperature below limit (35.2°C)", result.Message)
}

func TestEvaluate_OrderSpO2WinsOverBPM(t *testing.T) {
	// 多项同时越限时只产生第一条命中（血氧优先）
	result := Evaluate(reading(88, 130, 39.0), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "spo2", result.Metric)
}

func TestEvaluate_OrderBPMLowWinsOverTemperature(t *testing.T) {
	result := Evaluate(reading(97, 40, 39.0), defaultThresholds())

	require.NotNil(t, result)
	assert.Equal(t, "bpm", result.Metric)
	assert.Equal(t, "Heart rate below limit (40 BPM)", result.Message)
}

func TestEvaluate_NilInputs(t *testing.T) {
	assert.Nil(t, Evaluate(nil, defaultThresholds()))
	assert.Nil(t, Evaluate(reading(97, 72, 36.6), nil))
}

func TestEvaluationOrder_Fixed(t *testing.T) {
	names := make([]string, 0, len(EvaluationOrder))
	for _, check := range EvaluationOrder {
		names = append(names, check.Name)
	}
	assert.Equal(t, []string{"spo2_low", "bpm_low", "bpm_high", "temperature_low", "temperature_high"}, names)
}
