package models

import (
	"errors"
	"fmt"
)

// 业务错误（调用方可恢复，用 errors.Is / errors.As 判断）
var (
	// ErrValidation 输入不合法（如缺少 patient_id），立即拒绝，无部分副作用
	ErrValidation = errors.New("validation error")

	// ErrPersistence 存储写入失败，唯一会中止调度的失败
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound 报警不存在
	ErrNotFound = errors.New("alert not found")

	// ErrAlreadyAcknowledged 报警已被其他响应者确认（先到先得）
	ErrAlreadyAcknowledged = errors.New("alert already acknowledged")

	// ErrInvalidTransition 不允许的状态迁移（如对 resolved 报警再操作）
	ErrInvalidTransition = errors.New("invalid alert status transition")
)

// AlreadyActiveError 患者已有活跃 SOS 会话
// 携带现有报警ID，调用方把它当作提示信息处理，不是致命错误
type AlreadyActiveError struct {
	AlertID string
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("sos session already active: alert_id=%s", e.AlertID)
}
