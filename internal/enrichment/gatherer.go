package enrichment

import (
	"context"
	"time"

	"vital-guard/internal/models"

	"go.uber.org/zap"
)

// LocationProvider 定位提供方（外部协作者，实现不在本服务范围内）
type LocationProvider interface {
	CurrentLocation(ctx context.Context) (*models.LocationSnapshot, error)
}

// ProfileStore 医疗档案读取接口（由 repository.MedicalProfilesRepository 实现）
type ProfileStore interface {
	GetMedicalProfile(ctx context.Context, patientID string) (*models.MedicalProfile, error)
}

// Gatherer 尽力而为的报警上下文采集器（位置 + 医疗档案）
// 采集失败或超时只降级为缺失并记录日志，绝不向调用方传播错误：
// 报警不能因为附加信息拿不到而调度失败。
type Gatherer struct {
	location LocationProvider
	profiles ProfileStore
	timeout  time.Duration
	logger   *zap.Logger
}

// NewGatherer 创建采集器（timeout <= 0 时取 5 秒）
func NewGatherer(location LocationProvider, profiles ProfileStore, timeout time.Duration, logger *zap.Logger) *Gatherer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gatherer{
		location: location,
		profiles: profiles,
		timeout:  timeout,
		logger:   logger,
	}
}

// GatherLocation 采集当前位置（有界超时）
// 不可用时返回 nil, false。
func (g *Gatherer) GatherLocation(ctx context.Context) (*models.LocationSnapshot, bool) {
	if g.location == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	location, err := g.location.CurrentLocation(ctx)
	if err != nil {
		g.logger.Warn("Location unavailable, dispatching without it",
			zap.Error(err),
		)
		return nil, false
	}
	if location == nil {
		return nil, false
	}

	return location, true
}

// GatherProfile 采集医疗档案
// 不可用时返回 nil, false。
func (g *Gatherer) GatherProfile(ctx context.Context, patientID string) (*models.MedicalProfile, bool) {
	if g.profiles == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	profile, err := g.profiles.GetMedicalProfile(ctx, patientID)
	if err != nil {
		g.logger.Warn("Medical profile unavailable, dispatching without it",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		return nil, false
	}
	if profile == nil {
		return nil, false
	}

	return profile, true
}
