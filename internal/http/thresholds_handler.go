package httpapi

import (
	"net/http"

	"vitalwatch/internal/models"
	"vitalwatch/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ThresholdsHandler 患者阈值配置的读取和修改
type ThresholdsHandler struct {
	thresholdService *service.ThresholdService
	logger           *zap.Logger
}

// NewThresholdsHandler 创建阈值 Handler
func NewThresholdsHandler(thresholdService *service.ThresholdService, logger *zap.Logger) *ThresholdsHandler {
	return &ThresholdsHandler{
		thresholdService: thresholdService,
		logger:           logger,
	}
}

// Get GET /api/patients/{id}/thresholds
func (h *ThresholdsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return
	}

	patientID := int64(parseInt(mux.Vars(r)["id"], 0))
	if patientID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid patient id"))
		return
	}

	thresholds, err := h.thresholdService.Get(r.Context(), patientID, claims.UserID, claims.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(thresholds))
}

// Update PUT /api/patients/{id}/thresholds
func (h *ThresholdsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return
	}

	patientID := int64(parseInt(mux.Vars(r)["id"], 0))
	if patientID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid patient id"))
		return
	}

	var thresholds models.ThresholdSet
	if err := readBodyJSON(r, 1<<20, &thresholds); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	thresholds.PatientID = patientID

	if err := h.thresholdService.Update(r.Context(), &thresholds, claims.UserID, claims.Role); err != nil {
		h.logger.Warn("Threshold update rejected",
			zap.Int64("patient_id", patientID),
			zap.Int64("user_id", claims.UserID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(thresholds))
}
