package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"vital-guard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockProfilesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *MedicalProfilesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewMedicalProfilesRepository(db, logger)

	return db, mock, repo
}

func TestGetMedicalProfile_Success(t *testing.T) {
	db, mock, repo := setupMockProfilesDB(t)
	defer db.Close()

	patientID := uuid.New().String()
	rows := sqlmock.NewRows([]string{
		"patient_id", "blood_type", "conditions", "medications", "allergies", "emergency_contacts",
	}).AddRow(
		patientID, "O+",
		[]byte(`["hypertension"]`),
		[]byte(`["lisinopril"]`),
		[]byte(`["penicillin"]`),
		[]byte(`[{"name": "Contact", "phone": "+1-555-0100", "relationship": "daughter"}]`),
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(patientID).
		WillReturnRows(rows)

	profile, err := repo.GetMedicalProfile(context.Background(), patientID)

	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "O+", profile.BloodType)
	assert.Equal(t, []string{"hypertension"}, profile.Conditions)
	assert.Equal(t, []string{"penicillin"}, profile.Allergies)
	require.Len(t, profile.EmergencyContacts, 1)
	assert.Equal(t, "daughter", profile.EmergencyContacts[0].Relationship)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMedicalProfile_NotFoundIsNotError(t *testing.T) {
	db, mock, repo := setupMockProfilesDB(t)
	defer db.Close()

	patientID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(patientID).
		WillReturnError(sql.ErrNoRows)

	profile, err := repo.GetMedicalProfile(context.Background(), patientID)

	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMedicalProfile_Success(t *testing.T) {
	db, mock, repo := setupMockProfilesDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO medical_profiles`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertMedicalProfile(context.Background(), &models.MedicalProfile{
		PatientID: uuid.New().String(),
		BloodType: "A-",
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Contact", Phone: "+1-555-0100"},
		},
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMedicalProfile_Validation(t *testing.T) {
	db, _, repo := setupMockProfilesDB(t)
	defer db.Close()

	err := repo.UpsertMedicalProfile(context.Background(), nil)
	assert.True(t, errors.Is(err, models.ErrValidation))

	err = repo.UpsertMedicalProfile(context.Background(), &models.MedicalProfile{})
	assert.True(t, errors.Is(err, models.ErrValidation))
}
