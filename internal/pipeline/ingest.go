package pipeline

import (
	"context"
	"fmt"
	"time"

	"vital-guard/internal/dispatch"
	"vital-guard/internal/evaluator"
	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// ReadingStore 读数持久化接口（由 repository.VitalReadingsRepository 实现）
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.VitalReading) (string, error)
}

// AlertQuerier 活跃报警查询接口（vitals_critical 去重检查用）
type AlertQuerier interface {
	GetRecentActiveAlert(ctx context.Context, patientID, alertType string, within time.Duration) (*models.EmergencyAlert, error)
}

// Dispatcher 报警调度接口
type Dispatcher interface {
	Dispatch(ctx context.Context, event dispatch.Event) (string, error)
}

// RealtimeCache 实时缓存接口（尽力而为，由 consumer.CacheManager 实现）
type RealtimeCache interface {
	SetLatestReading(ctx context.Context, reading *models.VitalReading) error
}

// Pipeline 生命体征摄取管道
// 每次摄取：打采集时间戳 → 阈值评估 → 持久化读数 → 紧急时触发报警调度。
// 多来源（多设备）对同一患者的并发摄取各自独立评估。
type Pipeline struct {
	readings    ReadingStore
	alerts      AlertQuerier
	dispatcher  Dispatcher
	cache       RealtimeCache // 可为 nil
	thresholds  models.VitalThresholds
	dedupWindow time.Duration // 0 表示关闭 vitals_critical 去重
	logger      *zap.Logger
}

// NewPipeline 创建摄取管道
func NewPipeline(
	readings ReadingStore,
	alerts AlertQuerier,
	dispatcher Dispatcher,
	cache RealtimeCache,
	thresholds models.VitalThresholds,
	dedupWindow time.Duration,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		readings:    readings,
		alerts:      alerts,
		dispatcher:  dispatcher,
		cache:       cache,
		thresholds:  thresholds,
		dedupWindow: dedupWindow,
		logger:      logger,
	}
}

// Ingest 摄取一条原始读数，返回持久化后的读数ID
// 缺少 patient_id 时返回 ErrValidation，无任何副作用。
// 每次调用恰好持久化一条读数；读数是摄取的持久事实，
// 报警调度失败只记录日志，不影响返回。
func (p *Pipeline) Ingest(ctx context.Context, raw models.RawReading) (string, error) {
	if raw.PatientID == "" {
		return "", fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	capturedAt := raw.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	reading := &models.VitalReading{
		PatientID:   raw.PatientID,
		Vitals:      raw.Vitals,
		DeviceID:    raw.DeviceID,
		IsEmergency: evaluator.IsEmergency(raw.Vitals, p.thresholds),
		CapturedAt:  capturedAt,
	}

	readingID, err := p.readings.CreateReading(ctx, reading)
	if err != nil {
		return "", err
	}

	if p.cache != nil {
		if err := p.cache.SetLatestReading(ctx, reading); err != nil {
			p.logger.Warn("Failed to update realtime cache",
				zap.String("patient_id", reading.PatientID),
				zap.Error(err),
			)
		}
	}

	p.logger.Debug("Reading ingested",
		zap.String("reading_id", readingID),
		zap.String("patient_id", reading.PatientID),
		zap.Bool("is_emergency", reading.IsEmergency),
	)

	if reading.IsEmergency {
		p.dispatchCritical(ctx, reading)
	}

	return readingID, nil
}

// dispatchCritical 为紧急读数调度 vitals_critical 报警
// 去重窗口内已有同类活跃报警时抑制重复调度；
// 去重检查本身失败时照常调度。
func (p *Pipeline) dispatchCritical(ctx context.Context, reading *models.VitalReading) {
	if p.dedupWindow > 0 && p.alerts != nil {
		existing, err := p.alerts.GetRecentActiveAlert(ctx, reading.PatientID, models.AlertTypeVitalsCritical, p.dedupWindow)
		if err != nil {
			p.logger.Error("Failed to check for duplicate vitals alert",
				zap.String("patient_id", reading.PatientID),
				zap.Error(err),
			)
		} else if existing != nil {
			p.logger.Info("Suppressed duplicate vitals alert",
				zap.String("patient_id", reading.PatientID),
				zap.String("existing_alert_id", existing.AlertID),
			)
			return
		}
	}

	vitals := reading.Vitals
	alertID, err := p.dispatcher.Dispatch(ctx, dispatch.Event{
		PatientID: reading.PatientID,
		Type:      models.AlertTypeVitalsCritical,
		Severity:  evaluator.Severity(vitals),
		Vitals:    &vitals,
	})
	if err != nil {
		p.logger.Error("Failed to dispatch vitals alert",
			zap.String("patient_id", reading.PatientID),
			zap.String("reading_id", reading.ReadingID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("Vitals alert dispatched",
		zap.String("alert_id", alertID),
		zap.String("patient_id", reading.PatientID),
		zap.String("reading_id", reading.ReadingID),
	)
}
