package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"vital-guard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransport struct {
	mu      sync.Mutex
	sends   map[Target]Payload
	failing map[Target]error
}

func (t *fakeTransport) Send(ctx context.Context, target Target, payload Payload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failing[target]; ok {
		return err
	}
	if t.sends == nil {
		t.sends = make(map[Target]Payload)
	}
	t.sends[target] = payload
	return nil
}

func testAlert() *models.EmergencyAlert {
	return &models.EmergencyAlert{
		AlertID:   "alert-1",
		PatientID: "patient-1",
		Type:      models.AlertTypeManualSOS,
		Severity:  models.SeverityCritical,
		Status:    models.AlertStatusActive,
		Message:   "SOS triggered by patient",
	}
}

func TestDeliver_RespondersAndFamily(t *testing.T) {
	transport := &fakeTransport{}
	f := NewFanout(transport, zap.NewNop())

	f.Deliver(context.Background(), testAlert())

	require.Len(t, transport.sends, 2)

	responders := transport.sends[TargetResponders]
	assert.Equal(t, "alert-1", responders.AlertID)
	assert.Equal(t, "SOS triggered by patient", responders.Message)

	// 家属通知文案按报警类型区分
	family := transport.sends[TargetFamily]
	assert.Equal(t, "Your connected patient triggered an SOS alert", family.Message)
}

func TestDeliver_EmergencyContactsOnlyWithProfile(t *testing.T) {
	transport := &fakeTransport{}
	f := NewFanout(transport, zap.NewNop())

	alert := testAlert()
	alert.Profile = &models.MedicalProfile{
		PatientID: "patient-1",
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Contact A", Phone: "+1-555-0100"},
			{Name: "Contact B", Phone: "+1-555-0101"},
		},
	}

	f.Deliver(context.Background(), alert)

	require.Len(t, transport.sends, 3)
	contacts := transport.sends[TargetEmergencyContacts]
	require.Len(t, contacts.Contacts, 2)
	assert.Equal(t, "Contact A", contacts.Contacts[0].Name)
}

func TestDeliver_NoContactsLegWithEmptyProfile(t *testing.T) {
	transport := &fakeTransport{}
	f := NewFanout(transport, zap.NewNop())

	alert := testAlert()
	alert.Profile = &models.MedicalProfile{PatientID: "patient-1"}

	f.Deliver(context.Background(), alert)

	_, ok := transport.sends[TargetEmergencyContacts]
	assert.False(t, ok)
}

func TestDeliver_FailedLegDoesNotBlockOthers(t *testing.T) {
	transport := &fakeTransport{
		failing: map[Target]error{
			TargetResponders: errors.New("channel down"),
		},
	}
	f := NewFanout(transport, zap.NewNop())

	f.Deliver(context.Background(), testAlert())

	// 响应者路失败，家属路仍然投递
	_, ok := transport.sends[TargetFamily]
	assert.True(t, ok)
}

func TestDeliver_FamilyMessageByAlertType(t *testing.T) {
	cases := []struct {
		alertType string
		message   string
	}{
		{models.AlertTypeVitalsCritical, "Critical vital signs detected for your connected patient"},
		{models.AlertTypeDeviceDisconnect, "A monitoring device for your connected patient disconnected"},
		{models.AlertTypeFallDetected, "A possible fall was detected for your connected patient"},
	}

	for _, tc := range cases {
		t.Run(tc.alertType, func(t *testing.T) {
			transport := &fakeTransport{}
			f := NewFanout(transport, zap.NewNop())

			alert := testAlert()
			alert.Type = tc.alertType
			f.Deliver(context.Background(), alert)

			assert.Equal(t, tc.message, transport.sends[TargetFamily].Message)
		})
	}
}

func TestDeliver_NilTransportIsNoop(t *testing.T) {
	f := NewFanout(nil, zap.NewNop())

	// 不应 panic
	f.Deliver(context.Background(), testAlert())
	f.Deliver(context.Background(), nil)
}
