package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"
	"vitalwatch/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// VitalsHandler 生命体征读数的接入和历史查询
type VitalsHandler struct {
	vitalsService *service.VitalsService
	patientsRepo  *repository.PatientsRepository
	logger        *zap.Logger
}

// NewVitalsHandler 创建读数 Handler
func NewVitalsHandler(
	vitalsService *service.VitalsService,
	patientsRepo *repository.PatientsRepository,
	logger *zap.Logger,
) *VitalsHandler {
	return &VitalsHandler{
		vitalsService: vitalsService,
		patientsRepo:  patientsRepo,
		logger:        logger,
	}
}

// timeRangeStart 时间窗口参数转起始时间，默认 24h
func timeRangeStart(timeRange string, now time.Time) time.Time {
	switch timeRange {
	case "6h":
		return now.Add(-6 * time.Hour)
	case "12h":
		return now.Add(-12 * time.Hour)
	case "48h":
		return now.Add(-48 * time.Hour)
	case "7d":
		return now.Add(-7 * 24 * time.Hour)
	case "30d":
		return now.Add(-30 * 24 * time.Hour)
	default:
		return now.Add(-24 * time.Hour)
	}
}

// patientIDFromReq 解析路径参数并校验调用者对患者的可见性
func (h *VitalsHandler) patientIDFromReq(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return 0, false
	}

	patientID := int64(parseInt(mux.Vars(r)["id"], 0))
	if patientID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid patient id"))
		return 0, false
	}

	allowed, err := h.patientsRepo.CanAccessPatient(r.Context(), patientID, claims.UserID, claims.Role)
	if err != nil {
		h.logger.Error("Failed to check patient access", zap.Error(err))
		writeError(w, err)
		return 0, false
	}
	if !allowed {
		writeJSON(w, http.StatusForbidden, Fail(fmt.Sprintf("access denied to patient %d", patientID)))
		return 0, false
	}

	return patientID, true
}

// GetHistory GET /api/patients/{id}/vitals?timeRange=24h
func (h *VitalsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.patientIDFromReq(w, r)
	if !ok {
		return
	}

	since := timeRangeStart(r.URL.Query().Get("timeRange"), time.Now())
	readings, err := h.vitalsService.History(r.Context(), patientID, since)
	if err != nil {
		h.logger.Error("Failed to query vitals history",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(readings))
}

// ingestResponse 含读数和（若越限）创建的报警
type ingestResponse struct {
	Record *models.VitalsReading `json:"record"`
	Alert  *models.Alert         `json:"alert,omitempty"`
}

// Ingest POST /api/patients/{id}/vitals
func (h *VitalsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.patientIDFromReq(w, r)
	if !ok {
		return
	}

	var input models.VitalsInput
	if err := readBodyJSON(r, 1<<20, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	reading, alert, err := h.vitalsService.Ingest(r.Context(), patientID, &input)
	if err != nil {
		h.logger.Error("Failed to ingest vitals",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Ok(ingestResponse{Record: reading, Alert: alert}))
}
