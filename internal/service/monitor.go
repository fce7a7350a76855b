package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vital-guard/internal/config"
	"vital-guard/internal/consumer"
	"vital-guard/internal/dispatch"
	"vital-guard/internal/enrichment"
	"vital-guard/internal/events"
	"vital-guard/internal/lifecycle"
	"vital-guard/internal/models"
	"vital-guard/internal/notify"
	"vital-guard/internal/pipeline"
	"vital-guard/internal/repository"
	"vital-guard/internal/sos"
	"vital-guard/internal/source"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// MonitorService 监护服务（整合各层）
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	readingsRepo   *repository.VitalReadingsRepository
	alertsRepo     *repository.AlertsRepository
	profilesRepo   *repository.MedicalProfilesRepository
	cacheManager   *consumer.CacheManager
	bus            *events.Bus
	dispatcher     *dispatch.Dispatcher
	pipeline       *pipeline.Pipeline
	tracker        *lifecycle.Tracker
	sosManager     *sos.Manager
	streamConsumer *consumer.StreamConsumer
	mqttSource     *source.MQTTSource
}

// NewMonitorService 创建监护服务
// locationProvider 是外部协作者（定位来源），可为 nil（报警将不带位置快照）。
func NewMonitorService(cfg *config.Config, logger *zap.Logger, locationProvider enrichment.LocationProvider) (*MonitorService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. Repository 层
	readingsRepo := repository.NewVitalReadingsRepository(db, logger)
	alertsRepo := repository.NewAlertsRepository(db, logger)
	profilesRepo := repository.NewMedicalProfilesRepository(db, logger)

	// 4. 缓存与事件总线
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)
	bus := events.NewBus()

	// 5. 报警调度链路：采集 → 调度 → 通知扇出
	gatherer := enrichment.NewGatherer(
		locationProvider,
		profilesRepo,
		time.Duration(cfg.Alert.LocationTimeout)*time.Second,
		logger,
	)
	transport := notify.NewRedisTransport(redisClient, cfg.Alert.NotifyChannelPrefix)
	fanout := notify.NewFanout(transport, logger)
	dispatcher := dispatch.NewDispatcher(
		alertsRepo,
		gatherer,
		fanout,
		time.Duration(cfg.Alert.NotifyTimeout)*time.Second,
		logger,
	)

	// 6. 摄取管道
	ingestPipeline := pipeline.NewPipeline(
		readingsRepo,
		alertsRepo,
		dispatcher,
		cacheManager,
		models.DefaultThresholds(),
		time.Duration(cfg.Vitals.DedupWindow)*time.Second,
		logger,
	)

	// 7. 生命周期跟踪与 SOS 会话管理
	tracker := lifecycle.NewTracker(alertsRepo, bus, logger)
	sosManager := sos.NewManager(dispatcher, tracker, alertsRepo, logger)
	bus.Subscribe(sosManager.HandleAlertEvent)

	// 8. 读数来源
	streamConsumer := consumer.NewStreamConsumer(cfg, redisClient, ingestPipeline, logger)

	var mqttSource *source.MQTTSource
	if cfg.MQTT.Broker != "" {
		mqttSource, err = source.NewMQTTSource(&cfg.MQTT, ingestPipeline, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt source: %w", err)
		}
	}

	return &MonitorService{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		readingsRepo:   readingsRepo,
		alertsRepo:     alertsRepo,
		profilesRepo:   profilesRepo,
		cacheManager:   cacheManager,
		bus:            bus,
		dispatcher:     dispatcher,
		pipeline:       ingestPipeline,
		tracker:        tracker,
		sosManager:     sosManager,
		streamConsumer: streamConsumer,
		mqttSource:     mqttSource,
	}, nil
}

// Start 启动服务（阻塞在流消费循环，直到 ctx 取消）
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting monitor service")

	if s.mqttSource != nil {
		if err := s.mqttSource.Start(); err != nil {
			return fmt.Errorf("failed to start mqtt source: %w", err)
		}
	}

	if err := s.streamConsumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to run stream consumer: %w", err)
	}

	return nil
}

// Stop 停止服务
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping monitor service")

	if s.mqttSource != nil {
		s.mqttSource.Stop()
	}

	// 等待在途通知投递完成
	s.dispatcher.Wait()

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}

// Pipeline 摄取管道（供上层接口复用）
func (s *MonitorService) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// SOS SOS 会话管理器
func (s *MonitorService) SOS() *sos.Manager {
	return s.sosManager
}

// Lifecycle 报警生命周期跟踪器
func (s *MonitorService) Lifecycle() *lifecycle.Tracker {
	return s.tracker
}

// Cache 实时缓存管理器
func (s *MonitorService) Cache() *consumer.CacheManager {
	return s.cacheManager
}
