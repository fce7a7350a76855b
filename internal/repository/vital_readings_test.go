package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"vital-guard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockReadingsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *VitalReadingsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewVitalReadingsRepository(db, logger)

	return db, mock, repo
}

func TestCreateReading_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	hr := 72
	spo2 := 98
	reading := &models.VitalReading{
		PatientID: uuid.New().String(),
		Vitals: models.VitalSigns{
			HeartRate:        &hr,
			OxygenSaturation: &spo2,
			BloodPressure:    &models.BloodPressure{Systolic: 120, Diastolic: 80},
		},
	}

	mock.ExpectExec(`INSERT INTO vital_readings`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	readingID, err := repo.CreateReading(context.Background(), reading)

	require.NoError(t, err)
	assert.NotEmpty(t, readingID)
	assert.Equal(t, readingID, reading.ReadingID)
	assert.False(t, reading.CapturedAt.IsZero())
	assert.False(t, reading.CreatedAt.IsZero())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReading_MissingPatientID(t *testing.T) {
	db, _, repo := setupMockReadingsDB(t)
	defer db.Close()

	_, err := repo.CreateReading(context.Background(), &models.VitalReading{})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestCreateReading_PersistenceError(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO vital_readings`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.CreateReading(context.Background(), &models.VitalReading{
		PatientID: uuid.New().String(),
	})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPersistence))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_Success(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	patientID := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"reading_id", "patient_id", "heart_rate", "oxygen_saturation",
		"temperature", "bp_systolic", "bp_diastolic", "device_id",
		"is_emergency", "captured_at", "created_at",
	}).
		AddRow(uuid.New().String(), patientID, 72, 98, 98.6, 120, 80, "device-1", false, now, now).
		AddRow(uuid.New().String(), patientID, nil, nil, nil, nil, nil, nil, false, now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs(patientID, 50).
		WillReturnRows(rows)

	readings, err := repo.ListReadings(context.Background(), patientID, 0)

	require.NoError(t, err)
	require.Len(t, readings, 2)

	// 完整读数
	require.NotNil(t, readings[0].Vitals.HeartRate)
	assert.Equal(t, 72, *readings[0].Vitals.HeartRate)
	require.NotNil(t, readings[0].Vitals.BloodPressure)
	assert.Equal(t, 120, readings[0].Vitals.BloodPressure.Systolic)
	require.NotNil(t, readings[0].DeviceID)
	assert.Equal(t, "device-1", *readings[0].DeviceID)

	// 全部字段缺失的读数
	assert.Nil(t, readings[1].Vitals.HeartRate)
	assert.Nil(t, readings[1].Vitals.BloodPressure)
	assert.Nil(t, readings[1].DeviceID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_LimitClamped(t *testing.T) {
	db, mock, repo := setupMockReadingsDB(t)
	defer db.Close()

	patientID := uuid.New().String()

	rows := sqlmock.NewRows([]string{
		"reading_id", "patient_id", "heart_rate", "oxygen_saturation",
		"temperature", "bp_systolic", "bp_diastolic", "device_id",
		"is_emergency", "captured_at", "created_at",
	})

	mock.ExpectQuery(`SELECT`).
		WithArgs(patientID, 500).
		WillReturnRows(rows)

	readings, err := repo.ListReadings(context.Background(), patientID, 10000)

	require.NoError(t, err)
	assert.Empty(t, readings)

	require.NoError(t, mock.ExpectationsWereMet())
}
