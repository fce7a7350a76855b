package sos

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vital-guard/internal/dispatch"
	"vital-guard/internal/events"
	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// Dispatcher 报警调度接口
type Dispatcher interface {
	Dispatch(ctx context.Context, event dispatch.Event) (string, error)
}

// Resolver 报警解除接口（由 lifecycle.Tracker 实现）
type Resolver interface {
	Resolve(ctx context.Context, alertID, resolution string) error
}

// ActiveAlertQuerier 活跃报警查询接口（崩溃恢复用）
type ActiveAlertQuerier interface {
	GetActiveAlerts(ctx context.Context, patientID string) ([]*models.EmergencyAlert, error)
}

// session SOS 会话（每个患者至多一个）
type session struct {
	alertID string
}

// Manager SOS 会话管理器
// 每个患者同一时刻至多一个活跃会话；会话状态只存在进程内存中，
// "是否有活跃报警"的持久事实是报警记录的 status 字段，
// 重启后用 Recover 从持久化状态重建。
// 状态保存在实例里，不是包级单例，测试可以按场景独立创建。
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session // patientID → 会话

	dispatcher Dispatcher
	resolver   Resolver
	alerts     ActiveAlertQuerier
	logger     *zap.Logger
}

// NewManager 创建 SOS 会话管理器
func NewManager(
	dispatcher Dispatcher,
	resolver Resolver,
	alerts ActiveAlertQuerier,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		sessions:   make(map[string]*session),
		dispatcher: dispatcher,
		resolver:   resolver,
		alerts:     alerts,
		logger:     logger,
	}
}

// TriggerSOS 触发手动 SOS，返回调度出的报警ID
// 只允许从空闲状态触发：已有活跃会话时返回 AlreadyActiveError
// （携带现有报警ID），不会产生第二条报警。
// 位置和档案由调度器尽力采集，拿不到也照常调度。
func (m *Manager) TriggerSOS(ctx context.Context, patientID, message string) (string, error) {
	if patientID == "" {
		return "", fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	// 先占位再调度，两次近乎同时的触发不会产生两个会话
	m.mu.Lock()
	if existing, ok := m.sessions[patientID]; ok {
		m.mu.Unlock()
		return "", &models.AlreadyActiveError{AlertID: existing.alertID}
	}
	placeholder := &session{}
	m.sessions[patientID] = placeholder
	m.mu.Unlock()

	if message == "" {
		message = "SOS triggered by patient"
	}

	alertID, err := m.dispatcher.Dispatch(ctx, dispatch.Event{
		PatientID: patientID,
		Type:      models.AlertTypeManualSOS,
		Severity:  models.SeverityCritical,
		Message:   message,
	})
	if err != nil {
		m.mu.Lock()
		if m.sessions[patientID] == placeholder {
			delete(m.sessions, patientID)
		}
		m.mu.Unlock()
		return "", err
	}

	m.mu.Lock()
	placeholder.alertID = alertID
	m.mu.Unlock()

	m.logger.Info("SOS session activated",
		zap.String("patient_id", patientID),
		zap.String("alert_id", alertID),
	)

	return alertID, nil
}

// CancelSOS 取消 SOS：关联报警标记为 resolved（取消原因作为消息），清除会话
// 空闲状态下是空操作，返回 false。
func (m *Manager) CancelSOS(ctx context.Context, patientID, reason string) (bool, error) {
	m.mu.Lock()
	active, ok := m.sessions[patientID]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}

	if reason == "" {
		reason = "SOS cancelled by patient"
	}

	if active.alertID != "" {
		err := m.resolver.Resolve(ctx, active.alertID, reason)
		if err != nil && !errors.Is(err, models.ErrInvalidTransition) && !errors.Is(err, models.ErrNotFound) {
			return false, err
		}
	}

	m.mu.Lock()
	if m.sessions[patientID] == active {
		delete(m.sessions, patientID)
	}
	m.mu.Unlock()

	m.logger.Info("SOS session cancelled",
		zap.String("patient_id", patientID),
		zap.String("alert_id", active.alertID),
		zap.String("reason", reason),
	)

	return true, nil
}

// ActiveAlertID 返回患者当前活跃会话的报警ID
func (m *Manager) ActiveAlertID(patientID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[patientID]; ok {
		return s.alertID, true
	}
	return "", false
}

// Recover 从持久化状态重建患者的会话（进程重启后调用）
// 有未解除的 manual_sos 报警则恢复会话，否则清除本地状态。
func (m *Manager) Recover(ctx context.Context, patientID string) error {
	if patientID == "" {
		return fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	alerts, err := m.alerts.GetActiveAlerts(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to query active alerts: %w", err)
	}

	for _, alert := range alerts {
		if alert.Type == models.AlertTypeManualSOS {
			m.mu.Lock()
			m.sessions[patientID] = &session{alertID: alert.AlertID}
			m.mu.Unlock()

			m.logger.Info("SOS session recovered",
				zap.String("patient_id", patientID),
				zap.String("alert_id", alert.AlertID),
			)
			return nil
		}
	}

	m.mu.Lock()
	delete(m.sessions, patientID)
	m.mu.Unlock()

	return nil
}

// HandleAlertEvent 订阅报警生命周期事件
// 关联报警被解除时（可能由另一进程的响应者操作）清除本地会话，
// 之后该患者可以再次触发 SOS。
func (m *Manager) HandleAlertEvent(event events.AlertEvent) {
	if event.Status != models.AlertStatusResolved {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for patientID, s := range m.sessions {
		if s.alertID == event.AlertID {
			delete(m.sessions, patientID)
			m.logger.Info("SOS session cleared on alert resolution",
				zap.String("patient_id", patientID),
				zap.String("alert_id", event.AlertID),
			)
			return
		}
	}
}
