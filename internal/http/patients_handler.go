package httpapi

import (
	"net/http"

	"vitalwatch/internal/models"
	"vitalwatch/internal/repository"

	"go.uber.org/zap"
)

// PatientsHandler 患者登记。患者由主治医生创建，创建时播种默认阈值。
type PatientsHandler struct {
	patientsRepo *repository.PatientsRepository
	logger       *zap.Logger
}

// NewPatientsHandler 创建患者 Handler
func NewPatientsHandler(patientsRepo *repository.PatientsRepository, logger *zap.Logger) *PatientsHandler {
	return &PatientsHandler{
		patientsRepo: patientsRepo,
		logger:       logger,
	}
}

type createPatientRequest struct {
	Name string `json:"name"`
}

// Create POST /api/patients
func (h *PatientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return
	}
	if claims.Role != models.RoleDoctor {
		writeJSON(w, http.StatusForbidden, Fail("only doctors may register patients"))
		return
	}

	var req createPatientRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	info, err := h.patientsRepo.CreatePatient(r.Context(), req.Name, claims.UserID)
	if err != nil {
		h.logger.Error("Failed to create patient",
			zap.Int64("doctor_id", claims.UserID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Ok(info))
}
