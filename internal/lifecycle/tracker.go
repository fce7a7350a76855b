package lifecycle

import (
	"context"
	"fmt"

	"vital-guard/internal/events"
	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// AlertStore 报警状态存储接口（由 repository.AlertsRepository 实现）
// 所有迁移方法都是存储层的原子比较并更新，失败返回命名业务错误。
type AlertStore interface {
	AcknowledgeAlert(ctx context.Context, alertID, responderID string) (*models.EmergencyAlert, error)
	StartResponse(ctx context.Context, alertID, responderID string) (*models.EmergencyAlert, error)
	ResolveAlert(ctx context.Context, alertID, resolution string) (*models.EmergencyAlert, error)
}

// Tracker 报警生命周期跟踪器
// 状态机：active → acknowledged → responding → resolved，
// acknowledge 先到先得，resolved 是终态。
// 每次迁移成功后在事件总线上发布，SOS 会话管理器据此观察解除。
type Tracker struct {
	alerts AlertStore
	bus    *events.Bus // 可为 nil
	logger *zap.Logger
}

// NewTracker 创建生命周期跟踪器
func NewTracker(alerts AlertStore, bus *events.Bus, logger *zap.Logger) *Tracker {
	return &Tracker{
		alerts: alerts,
		bus:    bus,
		logger: logger,
	}
}

// Acknowledge 确认报警（active → acknowledged）
// 已被其他响应者确认时返回 ErrAlreadyAcknowledged，并发确认只有一个成功。
func (t *Tracker) Acknowledge(ctx context.Context, alertID, responderID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}
	if responderID == "" {
		return fmt.Errorf("%w: responder_id is required", models.ErrValidation)
	}

	alert, err := t.alerts.AcknowledgeAlert(ctx, alertID, responderID)
	if err != nil {
		return err
	}

	t.logger.Info("Alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("responder_id", responderID),
	)

	t.publish(alert)
	return nil
}

// StartResponse 开始响应（active|acknowledged → responding）
func (t *Tracker) StartResponse(ctx context.Context, alertID, responderID string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}
	if responderID == "" {
		return fmt.Errorf("%w: responder_id is required", models.ErrValidation)
	}

	alert, err := t.alerts.StartResponse(ctx, alertID, responderID)
	if err != nil {
		return err
	}

	t.logger.Info("Alert response started",
		zap.String("alert_id", alertID),
		zap.String("responder_id", responderID),
	)

	t.publish(alert)
	return nil
}

// Resolve 解除报警（任意非 resolved 状态 → resolved，终态）
// resolved 报警保留用于审计，不允许再迁移。
func (t *Tracker) Resolve(ctx context.Context, alertID, resolution string) error {
	if alertID == "" {
		return fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}

	alert, err := t.alerts.ResolveAlert(ctx, alertID, resolution)
	if err != nil {
		return err
	}

	t.logger.Info("Alert resolved",
		zap.String("alert_id", alertID),
		zap.String("resolution", resolution),
	)

	t.publish(alert)
	return nil
}

func (t *Tracker) publish(alert *models.EmergencyAlert) {
	if t.bus == nil || alert == nil {
		return
	}
	t.bus.Publish(events.AlertEvent{
		AlertID:   alert.AlertID,
		PatientID: alert.PatientID,
		Type:      alert.Type,
		Status:    alert.Status,
	})
}
