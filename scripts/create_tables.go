package main

import (
	"database/sql"
	"fmt"
	"os"

	"vital-guard/internal/config"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS vital_readings (
    reading_id        UUID PRIMARY KEY,
    patient_id        VARCHAR(64) NOT NULL,
    heart_rate        INTEGER,
    oxygen_saturation INTEGER,
    temperature       DOUBLE PRECISION,
    bp_systolic       INTEGER,
    bp_diastolic      INTEGER,
    device_id         VARCHAR(128),
    is_emergency      BOOLEAN NOT NULL DEFAULT FALSE,
    captured_at       TIMESTAMPTZ NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_vital_readings_patient_captured
    ON vital_readings (patient_id, captured_at DESC);

CREATE TABLE IF NOT EXISTS emergency_alerts (
    alert_id        UUID PRIMARY KEY,
    patient_id      VARCHAR(64) NOT NULL,
    type            VARCHAR(32) NOT NULL,
    severity        VARCHAR(16) NOT NULL,
    status          VARCHAR(16) NOT NULL DEFAULT 'active',
    message         TEXT NOT NULL DEFAULT '',
    location        JSONB,
    vitals          JSONB,
    medical_profile JSONB,
    acknowledged_by VARCHAR(64),
    acknowledged_at TIMESTAMPTZ,
    responder_id    VARCHAR(64),
    responded_at    TIMESTAMPTZ,
    resolved_at     TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_emergency_alerts_patient_status
    ON emergency_alerts (patient_id, status, created_at DESC);

CREATE TABLE IF NOT EXISTS medical_profiles (
    patient_id         VARCHAR(64) PRIMARY KEY,
    blood_type         VARCHAR(8),
    conditions         JSONB,
    medications        JSONB,
    allergies          JSONB,
    emergency_contacts JSONB
);
`

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 连接数据库
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	// 执行 SQL
	if _, err := db.Exec(schema); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ vital-guard tables created successfully!")
}
