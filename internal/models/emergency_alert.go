package models

import (
	"time"
)

// 报警类型
const (
	AlertTypeManualSOS        = "manual_sos"
	AlertTypeVitalsCritical   = "vitals_critical"
	AlertTypeDeviceDisconnect = "device_disconnect"
	AlertTypeFallDetected     = "fall_detected"
)

// 报警级别
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// 报警状态
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResponding   = "responding"
	AlertStatusResolved     = "resolved"
)

// LocationSnapshot 调度时刻的位置快照
type LocationSnapshot struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"` // 米
	Timestamp int64   `json:"timestamp"`
}

// EmergencyAlert 紧急报警（对应 emergency_alerts 表）
// 位置、体征、医疗档案是调度时刻复制的快照，后续档案变更不影响已调度的报警。
// 报警从不删除，resolved 状态保留用于审计。
type EmergencyAlert struct {
	AlertID        string            `json:"alert_id" db:"alert_id"`
	PatientID      string            `json:"patient_id" db:"patient_id"`
	Type           string            `json:"type" db:"type"`
	Severity       string            `json:"severity" db:"severity"`
	Status         string            `json:"status" db:"status"`
	Message        string            `json:"message" db:"message"`
	Location       *LocationSnapshot `json:"location,omitempty"`        // JSONB
	Vitals         *VitalSigns       `json:"vitals,omitempty"`          // JSONB
	Profile        *MedicalProfile   `json:"medical_profile,omitempty"` // JSONB
	AcknowledgedBy *string           `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResponderID    *string           `json:"responder_id,omitempty" db:"responder_id"`
	RespondedAt    *time.Time        `json:"responded_at,omitempty" db:"responded_at"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}
