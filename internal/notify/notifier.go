package notify

import (
	"context"
	"fmt"
	"sync"

	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// Target 通知目标
type Target string

const (
	TargetResponders        Target = "responders"         // 响应者池
	TargetFamily            Target = "family"             // 关联家属
	TargetEmergencyContacts Target = "emergency_contacts" // 紧急联系人
)

// Payload 通知负载
type Payload struct {
	AlertID   string                    `json:"alert_id"`
	PatientID string                    `json:"patient_id"`
	Type      string                    `json:"type"`
	Severity  string                    `json:"severity"`
	Message   string                    `json:"message"`
	Contacts  []models.EmergencyContact `json:"contacts,omitempty"`
}

// Transport 通知传输（外部协作者）
type Transport interface {
	Send(ctx context.Context, target Target, payload Payload) error
}

// Fanout 三路独立通知扇出（响应者、家属、紧急联系人）
// 每一路单独尽力而为：失败只记录日志，不回滚已持久化的报警，也不阻塞其他路。
type Fanout struct {
	transport Transport
	logger    *zap.Logger
}

// NewFanout 创建通知扇出器
func NewFanout(transport Transport, logger *zap.Logger) *Fanout {
	return &Fanout{
		transport: transport,
		logger:    logger,
	}
}

// Deliver 向各目标扇出报警通知，直到所有路完成（或 ctx 超时）才返回
// 响应者和家属总是通知；紧急联系人只在档案快照里有联系人时通知。
func (f *Fanout) Deliver(ctx context.Context, alert *models.EmergencyAlert) {
	if f.transport == nil || alert == nil {
		return
	}

	basePayload := Payload{
		AlertID:   alert.AlertID,
		PatientID: alert.PatientID,
		Type:      alert.Type,
		Severity:  alert.Severity,
		Message:   alert.Message,
	}

	legs := []struct {
		target  Target
		payload Payload
	}{
		{TargetResponders, basePayload},
		{TargetFamily, familyPayload(basePayload, alert)},
	}

	if alert.Profile != nil && len(alert.Profile.EmergencyContacts) > 0 {
		contactsPayload := basePayload
		contactsPayload.Contacts = alert.Profile.EmergencyContacts
		legs = append(legs, struct {
			target  Target
			payload Payload
		}{TargetEmergencyContacts, contactsPayload})
	}

	var wg sync.WaitGroup
	for _, leg := range legs {
		wg.Add(1)
		go func(target Target, payload Payload) {
			defer wg.Done()
			if err := f.transport.Send(ctx, target, payload); err != nil {
				f.logger.Warn("Notification leg failed",
					zap.String("target", string(target)),
					zap.String("alert_id", payload.AlertID),
					zap.String("patient_id", payload.PatientID),
					zap.Error(err),
				)
			}
		}(leg.target, leg.payload)
	}
	wg.Wait()
}

// familyPayload 家属通知（消息文案按报警类型区分）
func familyPayload(base Payload, alert *models.EmergencyAlert) Payload {
	payload := base
	switch alert.Type {
	case models.AlertTypeManualSOS:
		payload.Message = "Your connected patient triggered an SOS alert"
	case models.AlertTypeVitalsCritical:
		payload.Message = "Critical vital signs detected for your connected patient"
	case models.AlertTypeDeviceDisconnect:
		payload.Message = "A monitoring device for your connected patient disconnected"
	case models.AlertTypeFallDetected:
		payload.Message = "A possible fall was detected for your connected patient"
	default:
		payload.Message = fmt.Sprintf("Emergency alert (%s) for your connected patient", alert.Type)
	}
	return payload
}
