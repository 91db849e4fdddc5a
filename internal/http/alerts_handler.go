package httpapi

import (
	"net/http"

	"vitalwatch/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AlertsHandler 报警列表、确认和导出
type AlertsHandler struct {
	alertService *service.AlertService
	logger       *zap.Logger
}

// NewAlertsHandler 创建报警 Handler
func NewAlertsHandler(alertService *service.AlertService, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{
		alertService: alertService,
		logger:       logger,
	}
}

// List GET /api/alerts?limit=50
func (h *AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return
	}

	limit := parseInt(r.URL.Query().Get("limit"), 50)
	alerts, err := h.alertService.List(r.Context(), claims.UserID, claims.Role, limit)
	if err != nil {
		h.logger.Error("Failed to list alerts",
			zap.Int64("user_id", claims.UserID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(alerts))
}

// Acknowledge POST /api/alerts/{id}/acknowledge
func (h *AlertsHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return
	}

	alertID := int64(parseInt(mux.Vars(r)["id"], 0))
	if alertID <= 0 {
		writeJSON(w, http.StatusBadRequest, Fail("invalid alert id"))
		return
	}

	alert, err := h.alertService.Acknowledge(r.Context(), alertID, claims.UserID, claims.Role)
	if err != nil {
		h.logger.Warn("Acknowledge rejected",
			zap.Int64("alert_id", alertID),
			zap.Int64("user_id", claims.UserID),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Ok(alert))
}

// Export GET /api/alerts/export 导出调用者可见的报警为 Excel
func (h *AlertsHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromReq(w, r)
	if !ok {
		return
	}

	alerts, err := h.alertService.List(r.Context(), claims.UserID, claims.Role, 50)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GenerateAlertsExport(alerts)
	if err != nil {
		h.logger.Error("Failed to generate alerts export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="alerts.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
