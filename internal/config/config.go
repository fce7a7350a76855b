package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（Broker 为空时不启用 MQTT 来源）
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	Topic    string // 订阅主题，如 "vital-guard/+/vitals"
}

// Config 监护服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 读数摄取配置
	Vitals struct {
		// Redis Streams 配置
		Stream struct {
			Input string // 输入读数流，如 "vital-guard:readings:stream"
		}
		ConsumerGroup string // 消费者组名称
		ConsumerName  string // 消费者名称
		BatchSize     int64  // 批量读取大小

		// vitals_critical 去重窗口（秒），0 表示关闭去重
		DedupWindow int

		// Redis 缓存配置
		Cache struct {
			KeyPrefix      string // 患者缓存键前缀，如 "vital-guard:patient:"
			RealtimeSuffix string // 实时读数缓存键后缀，如 ":realtime"
			AlertSuffix    string // 活跃报警缓存键后缀，如 ":alerts"
			RealtimeTTL    int    // 实时读数 TTL（秒）
			AlertTTL       int    // 报警缓存 TTL（秒）
		}
	}

	// 报警调度配置
	Alert struct {
		LocationTimeout     int    // 位置采集超时（秒）
		NotifyTimeout       int    // 通知扇出超时（秒）
		NotifyChannelPrefix string // 通知频道前缀，如 "vital-guard:"
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalguard")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vital-guard")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "vital-guard/+/vitals")

	// 读数摄取配置
	cfg.Vitals.Stream.Input = getEnv("STREAM_INPUT", "vital-guard:readings:stream")
	cfg.Vitals.ConsumerGroup = getEnv("CONSUMER_GROUP", "vital-guard-group")
	cfg.Vitals.ConsumerName = getEnv("CONSUMER_NAME", "vital-guard-1")
	cfg.Vitals.BatchSize = 10
	cfg.Vitals.DedupWindow = getEnvInt("DEDUP_WINDOW", 300) // 5分钟

	cfg.Vitals.Cache.KeyPrefix = getEnv("CACHE_PATIENT_PREFIX", "vital-guard:patient:")
	cfg.Vitals.Cache.RealtimeSuffix = ":realtime"
	cfg.Vitals.Cache.AlertSuffix = ":alerts"
	cfg.Vitals.Cache.RealtimeTTL = 300 // 5分钟
	cfg.Vitals.Cache.AlertTTL = 30     // 30秒

	// 报警调度配置
	cfg.Alert.LocationTimeout = getEnvInt("LOCATION_TIMEOUT", 5)
	cfg.Alert.NotifyTimeout = getEnvInt("NOTIFY_TIMEOUT", 10)
	cfg.Alert.NotifyChannelPrefix = getEnv("NOTIFY_CHANNEL_PREFIX", "vital-guard:")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
