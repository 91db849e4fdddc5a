package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"vitalwatch/internal/models"

	"github.com/xuri/excelize/v2"
)

// AlertsExportHeader 报警导出表头
var AlertsExportHeader = []string{
	"Alert ID",
	"Patient",
	"Severity",
	"Message",
	"Created At",
	"Acknowledged",
	"Acknowledged By",
	"Acknowledged At",
}

// GenerateAlertsExport 生成报警历史 Excel 文件
func GenerateAlertsExport(alerts []*models.Alert) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：出错路径手动 Close，成功路径 WriteTo 需要文件保持打开

	sheetName := "Alerts"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range AlertsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, alert := range alerts {
		row := i + 2
		values := []interface{}{
			alert.ID,
			alert.PatientName,
			alert.Severity,
			alert.Message,
			alert.CreatedAt.Format(time.RFC3339),
			alert.Acknowledged,
			formatAckBy(alert),
			formatAckAt(alert),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}

	return buf.Bytes(), nil
}

func formatAckBy(alert *models.Alert) string {
	if alert.AcknowledgedBy == nil {
		return ""
	}
	return fmt.Sprintf("%d", *alert.AcknowledgedBy)
}

func formatAckAt(alert *models.Alert) string {
	if alert.AcknowledgedAt == nil {
		return ""
	}
	return alert.AcknowledgedAt.Format(time.RFC3339)
}
