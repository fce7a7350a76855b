package models

// EmergencyContact 紧急联系人
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// MedicalProfile 医疗档案（对应 medical_profiles 表）
type MedicalProfile struct {
	PatientID         string             `json:"patient_id" db:"patient_id"`
	BloodType         string             `json:"blood_type,omitempty" db:"blood_type"`
	Conditions        []string           `json:"conditions,omitempty"`         // JSONB
	Medications       []string           `json:"medications,omitempty"`        // JSONB
	Allergies         []string           `json:"allergies,omitempty"`          // JSONB
	EmergencyContacts []EmergencyContact `json:"emergency_contacts,omitempty"` // JSONB
}
