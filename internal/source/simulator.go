package source

import (
	"context"
	"math/rand"
	"time"

	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// Simulator 模拟读数来源（开发和演示环境用，代替真实设备）
// 按固定间隔为每个患者生成一条大致正常的读数并交给摄取管道。
type Simulator struct {
	patientIDs []string
	interval   time.Duration
	ingestor   Ingestor
	logger     *zap.Logger
	rand       *rand.Rand
}

// NewSimulator 创建模拟来源（interval <= 0 时取 30 秒）
func NewSimulator(patientIDs []string, interval time.Duration, ingestor Ingestor, logger *zap.Logger) *Simulator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Simulator{
		patientIDs: patientIDs,
		interval:   interval,
		ingestor:   ingestor,
		logger:     logger,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start 启动模拟循环（阻塞直到 ctx 取消）
func (s *Simulator) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Reading simulator started",
		zap.Int("patient_count", len(s.patientIDs)),
		zap.Duration("interval", s.interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reading simulator stopped")
			return nil
		case <-ticker.C:
			for _, patientID := range s.patientIDs {
				raw := s.generateReading(patientID)
				if _, err := s.ingestor.Ingest(ctx, raw); err != nil {
					s.logger.Error("Failed to ingest simulated reading",
						zap.String("patient_id", patientID),
						zap.Error(err),
					)
				}
			}
		}
	}
}

// generateReading 生成一条模拟读数（围绕正常值小幅波动）
func (s *Simulator) generateReading(patientID string) models.RawReading {
	heartRate := 65 + s.rand.Intn(25)
	oxygen := 94 + s.rand.Intn(6)
	temperature := 97.5 + s.rand.Float64()*2.0
	deviceID := "simulator"

	return models.RawReading{
		PatientID: patientID,
		Vitals: models.VitalSigns{
			HeartRate:        &heartRate,
			OxygenSaturation: &oxygen,
			Temperature:      &temperature,
			BloodPressure: &models.BloodPressure{
				Systolic:  105 + s.rand.Intn(25),
				Diastolic: 65 + s.rand.Intn(20),
			},
		},
		DeviceID:   &deviceID,
		CapturedAt: time.Now(),
	}
}
