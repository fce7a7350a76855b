package models

import (
	"time"
)

// BloodPressure 血压（收缩压/舒张压，mmHg）
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// VitalSigns 生命体征（所有字段可选，缺失字段不参与阈值评估）
type VitalSigns struct {
	HeartRate        *int           `json:"heart_rate,omitempty"`        // 心率（bpm）
	OxygenSaturation *int           `json:"oxygen_saturation,omitempty"` // 血氧饱和度（%）
	Temperature      *float64       `json:"temperature,omitempty"`       // 体温（°F）
	BloodPressure    *BloodPressure `json:"blood_pressure,omitempty"`
}

// VitalReading 生命体征读数（对应 vital_readings 表，持久化后不可变）
type VitalReading struct {
	ReadingID   string     `json:"reading_id" db:"reading_id"`
	PatientID   string     `json:"patient_id" db:"patient_id"`
	Vitals      VitalSigns `json:"vitals"`
	DeviceID    *string    `json:"device_id,omitempty" db:"device_id"`
	IsEmergency bool       `json:"is_emergency" db:"is_emergency"`
	CapturedAt  time.Time  `json:"captured_at" db:"captured_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// RawReading 来自任意来源的原始读数（蓝牙网关、MQTT、模拟器）
type RawReading struct {
	PatientID  string     `json:"patient_id"`
	Vitals     VitalSigns `json:"vitals"`
	DeviceID   *string    `json:"device_id,omitempty"`
	CapturedAt time.Time  `json:"captured_at"`
}
