package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vital-guard/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertsRepository 紧急报警仓库
// 状态迁移用条件 UPDATE 实现（比较并更新），并发响应者操作下不会丢失更新。
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository 创建报警仓库
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

const alertColumns = `
	alert_id,
	patient_id,
	type,
	severity,
	status,
	message,
	location,
	vitals,
	medical_profile,
	acknowledged_by,
	acknowledged_at,
	responder_id,
	responded_at,
	resolved_at,
	created_at,
	updated_at
`

// CreateAlert 持久化报警（alert_id 为空时自动生成，status 默认 active）
func (r *AlertsRepository) CreateAlert(ctx context.Context, alert *models.EmergencyAlert) (string, error) {
	if alert == nil {
		return "", fmt.Errorf("%w: alert is required", models.ErrValidation)
	}
	if alert.PatientID == "" {
		return "", fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}
	if alert.Type == "" {
		return "", fmt.Errorf("%w: type is required", models.ErrValidation)
	}

	if alert.AlertID == "" {
		alert.AlertID = uuid.New().String()
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusActive
	}
	now := time.Now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	if alert.UpdatedAt.IsZero() {
		alert.UpdatedAt = now
	}

	// 快照字段序列化为 JSONB，调度后不再跟随档案变化
	var locationJSON, vitalsJSON, profileJSON []byte
	var err error
	if alert.Location != nil {
		if locationJSON, err = json.Marshal(alert.Location); err != nil {
			return "", fmt.Errorf("failed to marshal location snapshot: %w", err)
		}
	}
	if alert.Vitals != nil {
		if vitalsJSON, err = json.Marshal(alert.Vitals); err != nil {
			return "", fmt.Errorf("failed to marshal vitals snapshot: %w", err)
		}
	}
	if alert.Profile != nil {
		if profileJSON, err = json.Marshal(alert.Profile); err != nil {
			return "", fmt.Errorf("failed to marshal profile snapshot: %w", err)
		}
	}

	query := `
		INSERT INTO emergency_alerts (
			alert_id,
			patient_id,
			type,
			severity,
			status,
			message,
			location,
			vitals,
			medical_profile,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.PatientID,
		alert.Type,
		alert.Severity,
		alert.Status,
		alert.Message,
		locationJSON,
		vitalsJSON,
		profileJSON,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create alert: %w", models.ErrPersistence, err)
	}

	return alert.AlertID, nil
}

// GetAlert 获取单个报警
func (r *AlertsRepository) GetAlert(ctx context.Context, alertID string) (*models.EmergencyAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM emergency_alerts
		WHERE alert_id = $1
	`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: alert_id=%s", models.ErrNotFound, alertID)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return alert, nil
}

// GetActiveAlerts 查询患者所有未解除的报警（崩溃恢复时重建 SOS 会话用）
func (r *AlertsRepository) GetActiveAlerts(ctx context.Context, patientID string) ([]*models.EmergencyAlert, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM emergency_alerts
		WHERE patient_id = $1
		  AND status <> 'resolved'
		ORDER BY created_at DESC
	`, alertColumns)

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.EmergencyAlert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// GetRecentActiveAlert 查询患者最近窗口内指定类型的未解除报警（去重检查用）
// 没有匹配时返回 nil, nil。
func (r *AlertsRepository) GetRecentActiveAlert(ctx context.Context, patientID, alertType string, within time.Duration) (*models.EmergencyAlert, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient_id is required", models.ErrValidation)
	}
	if alertType == "" {
		return nil, fmt.Errorf("%w: type is required", models.ErrValidation)
	}

	thresholdTime := time.Now().Add(-within)

	query := fmt.Sprintf(`
		SELECT %s
		FROM emergency_alerts
		WHERE patient_id = $1
		  AND type = $2
		  AND status <> 'resolved'
		  AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, patientID, alertType, thresholdTime))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query recent alert: %w", err)
	}

	return alert, nil
}

// ============================================
// 状态迁移（原子比较并更新）
// ============================================

// AcknowledgeAlert 确认报警：active → acknowledged，先到先得
// 单条条件 UPDATE 保证两个并发响应者只有一个成功。
func (r *AlertsRepository) AcknowledgeAlert(ctx context.Context, alertID, responderID string) (*models.EmergencyAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}
	if responderID == "" {
		return nil, fmt.Errorf("%w: responder_id is required", models.ErrValidation)
	}

	query := fmt.Sprintf(`
		UPDATE emergency_alerts
		SET status = 'acknowledged',
		    acknowledged_by = $1,
		    acknowledged_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $2
		  AND status = 'active'
		  AND acknowledged_by IS NULL
		RETURNING %s
	`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, responderID, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.classifyAcknowledgeConflict(ctx, alertID)
		}
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	return alert, nil
}

// classifyAcknowledgeConflict 区分确认失败的原因（不存在 / 已被确认 / 状态不允许）
func (r *AlertsRepository) classifyAcknowledgeConflict(ctx context.Context, alertID string) error {
	alert, err := r.GetAlert(ctx, alertID)
	if err != nil {
		return err
	}
	if alert.AcknowledgedBy != nil {
		return fmt.Errorf("%w: alert_id=%s, acknowledged_by=%s",
			models.ErrAlreadyAcknowledged, alertID, *alert.AcknowledgedBy)
	}
	return fmt.Errorf("%w: cannot acknowledge alert in status %q", models.ErrInvalidTransition, alert.Status)
}

// StartResponse 开始响应：active|acknowledged → responding
func (r *AlertsRepository) StartResponse(ctx context.Context, alertID, responderID string) (*models.EmergencyAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}
	if responderID == "" {
		return nil, fmt.Errorf("%w: responder_id is required", models.ErrValidation)
	}

	query := fmt.Sprintf(`
		UPDATE emergency_alerts
		SET status = 'responding',
		    responder_id = $1,
		    responded_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $2
		  AND status IN ('active', 'acknowledged')
		RETURNING %s
	`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, responderID, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.classifyTransitionConflict(ctx, alertID, "start response")
		}
		return nil, fmt.Errorf("failed to start response: %w", err)
	}

	return alert, nil
}

// ResolveAlert 解除报警：任意非 resolved 状态 → resolved（终态）
// resolution 非空时覆盖报警消息（如 SOS 取消原因）。
func (r *AlertsRepository) ResolveAlert(ctx context.Context, alertID, resolution string) (*models.EmergencyAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("%w: alert_id is required", models.ErrValidation)
	}

	query := fmt.Sprintf(`
		UPDATE emergency_alerts
		SET status = 'resolved',
		    message = CASE WHEN $1 <> '' THEN $1 ELSE message END,
		    resolved_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP
		WHERE alert_id = $2
		  AND status <> 'resolved'
		RETURNING %s
	`, alertColumns)

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, resolution, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, r.classifyTransitionConflict(ctx, alertID, "resolve")
		}
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	return alert, nil
}

// classifyTransitionConflict 区分迁移失败的原因（不存在 / 状态不允许）
func (r *AlertsRepository) classifyTransitionConflict(ctx context.Context, alertID, action string) error {
	alert, err := r.GetAlert(ctx, alertID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot %s alert in status %q", models.ErrInvalidTransition, action, alert.Status)
}

// ============================================
// 行扫描
// ============================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*models.EmergencyAlert, error) {
	var alert models.EmergencyAlert
	var location, vitals, profile []byte
	var acknowledgedBy, responderID sql.NullString
	var acknowledgedAt, respondedAt, resolvedAt sql.NullTime

	err := row.Scan(
		&alert.AlertID,
		&alert.PatientID,
		&alert.Type,
		&alert.Severity,
		&alert.Status,
		&alert.Message,
		&location,
		&vitals,
		&profile,
		&acknowledgedBy,
		&acknowledgedAt,
		&responderID,
		&respondedAt,
		&resolvedAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// 可空字段
	if acknowledgedBy.Valid {
		alert.AcknowledgedBy = &acknowledgedBy.String
	}
	if acknowledgedAt.Valid {
		alert.AcknowledgedAt = &acknowledgedAt.Time
	}
	if responderID.Valid {
		alert.ResponderID = &responderID.String
	}
	if respondedAt.Valid {
		alert.RespondedAt = &respondedAt.Time
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}

	// JSONB 快照字段
	if len(location) > 0 {
		if err := json.Unmarshal(location, &alert.Location); err != nil {
			return nil, fmt.Errorf("failed to unmarshal location snapshot: %w", err)
		}
	}
	if len(vitals) > 0 {
		if err := json.Unmarshal(vitals, &alert.Vitals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vitals snapshot: %w", err)
		}
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &alert.Profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile snapshot: %w", err)
		}
	}

	return &alert, nil
}
