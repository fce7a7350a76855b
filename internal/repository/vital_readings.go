package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vital-guard/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VitalReadingsRepository 生命体征读数仓库
type VitalReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVitalReadingsRepository 创建读数仓库
func NewVitalReadingsRepository(db *sql.DB, logger *zap.Logger) *VitalReadingsRepository {
	return &VitalReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReading 持久化一条读数（reading_id 为空时自动生成）
// 读数持久化后不可变，没有更新路径。
func (r *VitalReadingsRepository) CreateReading(ctx context.Context, reading *models.VitalReading) (string, error) {
	if reading == nil {
		return "", fmt.Errorf("%w: reading is required", models.ErrValidation)
	}
	if reading.PatientID == "" {
		return "", fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	if reading.ReadingID == "" {
		reading.ReadingID = uuid.New().String()
	}
	now := time.Now()
	if reading.CapturedAt.IsZero() {
		reading.CapturedAt = now
	}
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = now
	}

	query := `
		INSERT INTO vital_readings (
			reading_id,
			patient_id,
			heart_rate,
			oxygen_saturation,
			temperature,
			bp_systolic,
			bp_diastolic,
			device_id,
			is_emergency,
			captured_at,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	var systolic, diastolic *int
	if reading.Vitals.BloodPressure != nil {
		systolic = &reading.Vitals.BloodPressure.Systolic
		diastolic = &reading.Vitals.BloodPressure.Diastolic
	}

	_, err := r.db.ExecContext(ctx, query,
		reading.ReadingID,
		reading.PatientID,
		reading.Vitals.HeartRate,
		reading.Vitals.OxygenSaturation,
		reading.Vitals.Temperature,
		systolic,
		diastolic,
		reading.DeviceID,
		reading.IsEmergency,
		reading.CapturedAt,
		reading.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create vital reading: %w", models.ErrPersistence, err)
	}

	return reading.ReadingID, nil
}

// ListReadings 查询患者最近的读数（按采集时间倒序，limit 限制返回数量）
func (r *VitalReadingsRepository) ListReadings(ctx context.Context, patientID string, limit int) ([]*models.VitalReading, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT
			reading_id,
			patient_id,
			heart_rate,
			oxygen_saturation,
			temperature,
			bp_systolic,
			bp_diastolic,
			device_id,
			is_emergency,
			captured_at,
			created_at
		FROM vital_readings
		WHERE patient_id = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vital readings: %w", err)
	}
	defer rows.Close()

	readings := []*models.VitalReading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vital reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vital readings: %w", err)
	}

	return readings, nil
}

func scanReading(rows *sql.Rows) (*models.VitalReading, error) {
	var reading models.VitalReading
	var heartRate, oxygen, systolic, diastolic sql.NullInt64
	var temperature sql.NullFloat64
	var deviceID sql.NullString

	err := rows.Scan(
		&reading.ReadingID,
		&reading.PatientID,
		&heartRate,
		&oxygen,
		&temperature,
		&systolic,
		&diastolic,
		&deviceID,
		&reading.IsEmergency,
		&reading.CapturedAt,
		&reading.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// 可空字段
	if heartRate.Valid {
		v := int(heartRate.Int64)
		reading.Vitals.HeartRate = &v
	}
	if oxygen.Valid {
		v := int(oxygen.Int64)
		reading.Vitals.OxygenSaturation = &v
	}
	if temperature.Valid {
		v := temperature.Float64
		reading.Vitals.Temperature = &v
	}
	if systolic.Valid && diastolic.Valid {
		reading.Vitals.BloodPressure = &models.BloodPressure{
			Systolic:  int(systolic.Int64),
			Diastolic: int(diastolic.Int64),
		}
	}
	if deviceID.Valid {
		reading.DeviceID = &deviceID.String
	}

	return &reading, nil
}
