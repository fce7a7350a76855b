package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// MedicalProfilesRepository 医疗档案仓库
type MedicalProfilesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMedicalProfilesRepository 创建医疗档案仓库
func NewMedicalProfilesRepository(db *sql.DB, logger *zap.Logger) *MedicalProfilesRepository {
	return &MedicalProfilesRepository{
		db:     db,
		logger: logger,
	}
}

// GetMedicalProfile 获取患者医疗档案
// 档案不存在时返回 nil, nil（调度时按缺失处理，不算错误）。
func (r *MedicalProfilesRepository) GetMedicalProfile(ctx context.Context, patientID string) (*models.MedicalProfile, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	query := `
		SELECT
			patient_id,
			blood_type,
			conditions,
			medications,
			allergies,
			emergency_contacts
		FROM medical_profiles
		WHERE patient_id = $1
	`

	var profile models.MedicalProfile
	var bloodType sql.NullString
	var conditions, medications, allergies, contacts []byte

	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&profile.PatientID,
		&bloodType,
		&conditions,
		&medications,
		&allergies,
		&contacts,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get medical profile: %w", err)
	}

	if bloodType.Valid {
		profile.BloodType = bloodType.String
	}

	// JSONB 字段
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &profile.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}
	if len(medications) > 0 {
		if err := json.Unmarshal(medications, &profile.Medications); err != nil {
			return nil, fmt.Errorf("failed to unmarshal medications: %w", err)
		}
	}
	if len(allergies) > 0 {
		if err := json.Unmarshal(allergies, &profile.Allergies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allergies: %w", err)
		}
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &profile.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal emergency contacts: %w", err)
		}
	}

	return &profile, nil
}

// UpsertMedicalProfile 写入或更新患者医疗档案
func (r *MedicalProfilesRepository) UpsertMedicalProfile(ctx context.Context, profile *models.MedicalProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is required", models.ErrValidation)
	}
	if profile.PatientID == "" {
		return fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	conditions, err := json.Marshal(profile.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	medications, err := json.Marshal(profile.Medications)
	if err != nil {
		return fmt.Errorf("failed to marshal medications: %w", err)
	}
	allergies, err := json.Marshal(profile.Allergies)
	if err != nil {
		return fmt.Errorf("failed to marshal allergies: %w", err)
	}
	contacts, err := json.Marshal(profile.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("failed to marshal emergency contacts: %w", err)
	}

	query := `
		INSERT INTO medical_profiles (
			patient_id,
			blood_type,
			conditions,
			medications,
			allergies,
			emergency_contacts
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (patient_id) DO UPDATE SET
			blood_type = EXCLUDED.blood_type,
			conditions = EXCLUDED.conditions,
			medications = EXCLUDED.medications,
			allergies = EXCLUDED.allergies,
			emergency_contacts = EXCLUDED.emergency_contacts
	`

	_, err = r.db.ExecContext(ctx, query,
		profile.PatientID,
		profile.BloodType,
		conditions,
		medications,
		allergies,
		contacts,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert medical profile: %w", models.ErrPersistence, err)
	}

	return nil
}
