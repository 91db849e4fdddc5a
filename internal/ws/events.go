package ws

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound event names (client → server).
const (
	EventJoinDoctorRoom   = "join-doctor-room"
	EventJoinPatientRoom  = "join-patient-room"
	EventAcknowledgeAlert = "acknowledge-alert"
)

// Outbound event names (server → client).
const (
	EventVitalAlert        = "vital-alert"
	EventVitalUpdate       = "vital-update"
	EventAlertAcknowledged = "alert-acknowledged"
	EventError             = "error"
)

// Envelope is the wire format for every websocket message, both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AckPayload is pushed to rooms after an acknowledgement commits, so other
// connected viewers converge on the new alert state.
type AckPayload struct {
	AlertID        int64     `json:"alert_id"`
	AcknowledgedBy int64     `json:"acknowledged_by"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// ErrorPayload is sent to a single client when its inbound event fails.
type ErrorPayload struct {
	Message string `json:"message"`
}

// DoctorRoom names the room carrying events for one doctor's patients.
func DoctorRoom(doctorID int64) string {
	return fmt.Sprintf("doctor:%d", doctorID)
}

// PatientRoom names the room carrying events for one patient.
func PatientRoom(patientID int64) string {
	return fmt.Sprintf("patient:%d", patientID)
}

func marshalEnvelope(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}
