package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"vital-guard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIngestor struct {
	mu       sync.Mutex
	readings []models.RawReading
}

func (i *fakeIngestor) Ingest(ctx context.Context, raw models.RawReading) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.readings = append(i.readings, raw)
	return "reading-1", nil
}

func (i *fakeIngestor) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.readings)
}

func TestPatientIDFromTopic(t *testing.T) {
	assert.Equal(t, "patient-1", patientIDFromTopic("vital-guard/patient-1/vitals"))
	assert.Equal(t, "", patientIDFromTopic("vital-guard"))
	assert.Equal(t, "", patientIDFromTopic(""))
}

func TestSimulator_GeneratesReadingsPerPatient(t *testing.T) {
	ingestor := &fakeIngestor{}
	sim := NewSimulator([]string{"patient-1", "patient-2"}, 10*time.Millisecond, ingestor, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sim.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return ingestor.count() >= 4
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	// 读数字段完整且为各自患者生成
	seen := map[string]bool{}
	for _, raw := range ingestor.readings {
		seen[raw.PatientID] = true
		require.NotNil(t, raw.Vitals.HeartRate)
		require.NotNil(t, raw.Vitals.OxygenSaturation)
		require.NotNil(t, raw.Vitals.Temperature)
		require.NotNil(t, raw.Vitals.BloodPressure)
		require.NotNil(t, raw.DeviceID)
		assert.Equal(t, "simulator", *raw.DeviceID)
		assert.False(t, raw.CapturedAt.IsZero())
	}
	assert.True(t, seen["patient-1"])
	assert.True(t, seen["patient-2"])
}

func TestSimulator_DefaultInterval(t *testing.T) {
	sim := NewSimulator(nil, 0, &fakeIngestor{}, zap.NewNop())
	assert.Equal(t, 30*time.Second, sim.interval)
}
