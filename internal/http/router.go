package httpapi

import (
	"net/http"
	"time"

	"vitalwatch/internal/auth"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Verifier   *auth.Verifier
	Patients   *PatientsHandler
	Vitals     *VitalsHandler
	Alerts     *AlertsHandler
	Thresholds *ThresholdsHandler
	WS         http.Handler
}

// NewRouter 组装全部路由。/ws 自行处理 token（支持查询参数），
// 其余业务路由走 Bearer 中间件。
func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.Handle("/ws", deps.WS)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(deps.Verifier))

	api.HandleFunc("/patients", deps.Patients.Create).Methods("POST")
	api.HandleFunc("/patients/{id}/vitals", deps.Vitals.GetHistory).Methods("GET")
	api.HandleFunc("/patients/{id}/vitals", deps.Vitals.Ingest).Methods("POST")
	api.HandleFunc("/patients/{id}/thresholds", deps.Thresholds.Get).Methods("GET")
	api.HandleFunc("/patients/{id}/thresholds", deps.Thresholds.Update).Methods("PUT")
	api.HandleFunc("/alerts", deps.Alerts.List).Methods("GET")
	api.HandleFunc("/alerts/export", deps.Alerts.Export).Methods("GET")
	api.HandleFunc("/alerts/{id}/acknowledge", deps.Alerts.Acknowledge).Methods("POST")

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}))
}
