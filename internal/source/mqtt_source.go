package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vital-guard/internal/config"
	"vital-guard/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Ingestor 摄取接口（由 pipeline.Pipeline 实现）
type Ingestor interface {
	Ingest(ctx context.Context, raw models.RawReading) (string, error)
}

// MQTTSource MQTT 读数来源
// 设备网关按患者主题发布读数（如 "vital-guard/<patient_id>/vitals"），
// 每条消息解析后交给摄取管道。
type MQTTSource struct {
	client   mqtt.Client
	config   *config.MQTTConfig
	ingestor Ingestor
	logger   *zap.Logger
}

// NewMQTTSource 创建并连接 MQTT 来源
func NewMQTTSource(cfg *config.MQTTConfig, ingestor Ingestor, logger *zap.Logger) (*MQTTSource, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTSource{
		client:   client,
		config:   cfg,
		ingestor: ingestor,
		logger:   logger,
	}, nil
}

// Start 订阅读数主题
func (s *MQTTSource) Start() error {
	token := s.client.Subscribe(s.config.Topic, s.config.QoS, s.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.config.Topic, token.Error())
	}

	s.logger.Info("MQTT source started",
		zap.String("broker", s.config.Broker),
		zap.String("topic", s.config.Topic),
	)

	return nil
}

// Stop 断开 MQTT 连接
func (s *MQTTSource) Stop() {
	s.client.Unsubscribe(s.config.Topic)
	s.client.Disconnect(250)
}

// handleMessage 处理单条 MQTT 消息
// 负载里没有 patient_id 时从主题补齐；摄取失败只记录日志，不中断订阅。
func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw models.RawReading
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Error("Failed to parse reading from MQTT",
			zap.String("topic", msg.Topic()),
			zap.Error(err),
		)
		return
	}

	if raw.PatientID == "" {
		raw.PatientID = patientIDFromTopic(msg.Topic())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	readingID, err := s.ingestor.Ingest(ctx, raw)
	if err != nil {
		s.logger.Error("Failed to ingest MQTT reading",
			zap.String("topic", msg.Topic()),
			zap.String("patient_id", raw.PatientID),
			zap.Error(err),
		)
		return
	}

	s.logger.Debug("Reading ingested from MQTT",
		zap.String("topic", msg.Topic()),
		zap.String("reading_id", readingID),
	)
}

// patientIDFromTopic 从主题提取患者ID（主题形如 "vital-guard/<patient_id>/vitals"）
func patientIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}
