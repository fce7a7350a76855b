package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "vitalguard", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "", cfg.MQTT.Broker)
	assert.Equal(t, "vital-guard", cfg.MQTT.ClientID)
	assert.Equal(t, "vital-guard/+/vitals", cfg.MQTT.Topic)

	assert.Equal(t, "vital-guard:readings:stream", cfg.Vitals.Stream.Input)
	assert.Equal(t, "vital-guard-group", cfg.Vitals.ConsumerGroup)
	assert.Equal(t, "vital-guard-1", cfg.Vitals.ConsumerName)
	assert.Equal(t, int64(10), cfg.Vitals.BatchSize)
	assert.Equal(t, 300, cfg.Vitals.DedupWindow)

	assert.Equal(t, "vital-guard:patient:", cfg.Vitals.Cache.KeyPrefix)
	assert.Equal(t, ":realtime", cfg.Vitals.Cache.RealtimeSuffix)
	assert.Equal(t, ":alerts", cfg.Vitals.Cache.AlertSuffix)
	assert.Equal(t, 300, cfg.Vitals.Cache.RealtimeTTL)
	assert.Equal(t, 30, cfg.Vitals.Cache.AlertTTL)

	assert.Equal(t, 5, cfg.Alert.LocationTimeout)
	assert.Equal(t, 10, cfg.Alert.NotifyTimeout)
	assert.Equal(t, "vital-guard:", cfg.Alert.NotifyChannelPrefix)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_USER", "test-user")
	os.Setenv("DB_PASSWORD", "test-password")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_BROKER", "tcp://test-broker:1883")
	os.Setenv("STREAM_INPUT", "test:stream")
	os.Setenv("DEDUP_WINDOW", "60")
	os.Setenv("LOCATION_TIMEOUT", "3")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "text")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "test-user", cfg.Database.User)
	assert.Equal(t, "test-password", cfg.Database.Password)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "tcp://test-broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "test:stream", cfg.Vitals.Stream.Input)
	assert.Equal(t, 60, cfg.Vitals.DedupWindow)
	assert.Equal(t, 3, cfg.Alert.LocationTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-number")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db-host",
		Port:     5432,
		User:     "user",
		Password: "pass",
		Database: "vitalguard",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=db-host port=5432 user=user password=pass dbname=vitalguard sslmode=disable",
		cfg.DSN(),
	)
}
