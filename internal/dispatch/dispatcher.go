package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vital-guard/internal/enrichment"
	"vital-guard/internal/evaluator"
	"vital-guard/internal/models"
	"vital-guard/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore 报警持久化接口（由 repository.AlertsRepository 实现）
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.EmergencyAlert) (string, error)
}

// Event 报警事件（手动 SOS 或体征触发）
type Event struct {
	PatientID string
	Type      string
	Severity  string // 为空时按体征计算，无体征时默认 high
	Message   string
	Vitals    *models.VitalSigns
}

// Dispatcher 报警调度器
// 调度步骤：尽力采集上下文（位置、医疗档案）→ 持久化报警 → 三路通知扇出。
// 报警的存在是唯一的持久事实，通知只是尽力投递；
// 只有持久化失败才会让调度失败。
type Dispatcher struct {
	alerts        AlertStore
	gatherer      *enrichment.Gatherer
	fanout        *notify.Fanout
	notifyTimeout time.Duration
	logger        *zap.Logger

	wg sync.WaitGroup
}

// NewDispatcher 创建报警调度器（notifyTimeout <= 0 时取 10 秒）
func NewDispatcher(
	alerts AlertStore,
	gatherer *enrichment.Gatherer,
	fanout *notify.Fanout,
	notifyTimeout time.Duration,
	logger *zap.Logger,
) *Dispatcher {
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &Dispatcher{
		alerts:        alerts,
		gatherer:      gatherer,
		fanout:        fanout,
		notifyTimeout: notifyTimeout,
		logger:        logger,
	}
}

// Dispatch 调度报警，返回持久化后的报警ID
// 通知扇出与返回解耦：报警写入成功即返回，投递在后台完成。
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (string, error) {
	if event.PatientID == "" {
		return "", fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}
	if event.Type == "" {
		return "", fmt.Errorf("%w: type is required", models.ErrValidation)
	}

	location, _ := d.gatherer.GatherLocation(ctx)
	profile, _ := d.gatherer.GatherProfile(ctx, event.PatientID)

	severity := event.Severity
	if severity == "" {
		if event.Vitals != nil {
			severity = evaluator.Severity(*event.Vitals)
		} else {
			severity = models.SeverityHigh
		}
	}

	message := event.Message
	if message == "" {
		message = defaultMessage(event.Type)
	}

	// 体征和档案以快照副本写入，调度后不跟随源数据变化
	var vitals *models.VitalSigns
	if event.Vitals != nil {
		snapshot := *event.Vitals
		vitals = &snapshot
	}

	now := time.Now()
	alert := &models.EmergencyAlert{
		AlertID:   uuid.New().String(),
		PatientID: event.PatientID,
		Type:      event.Type,
		Severity:  severity,
		Status:    models.AlertStatusActive,
		Message:   message,
		Location:  location,
		Vitals:    vitals,
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}

	alertID, err := d.alerts.CreateAlert(ctx, alert)
	if err != nil {
		return "", err
	}

	d.logger.Info("Alert dispatched",
		zap.String("alert_id", alertID),
		zap.String("patient_id", event.PatientID),
		zap.String("type", event.Type),
		zap.String("severity", severity),
		zap.Bool("has_location", location != nil),
		zap.Bool("has_profile", profile != nil),
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		nctx, cancel := context.WithTimeout(context.Background(), d.notifyTimeout)
		defer cancel()
		d.fanout.Deliver(nctx, alert)
	}()

	return alertID, nil
}

// Wait 等待在途通知投递完成（优雅停机用）
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// defaultMessage 按报警类型生成默认消息
func defaultMessage(alertType string) string {
	switch alertType {
	case models.AlertTypeManualSOS:
		return "SOS triggered by patient"
	case models.AlertTypeVitalsCritical:
		return "Critical vital signs detected"
	case models.AlertTypeDeviceDisconnect:
		return "Monitoring device disconnected"
	case models.AlertTypeFallDetected:
		return "Possible fall detected"
	default:
		return "Emergency alert"
	}
}
