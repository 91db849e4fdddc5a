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
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	// 设备端发布生命体征读数的主题（+ 为 patient_id 通配）
	VitalsTopic string
}

// Config 监护服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	HTTP struct {
		Addr string
	}

	Auth struct {
		JWTSecret string
	}

	// 报警管道特定配置
	Alert struct {
		Cache struct {
			ThresholdKeyPrefix string // 阈值缓存键前缀，如 "vitalwatch:patient:"
			ThresholdSuffix    string // 阈值缓存键后缀，如 ":thresholds"
			RealtimeKeyPrefix  string // 实时数据缓存键前缀
			RealtimeSuffix     string // 实时数据缓存键后缀
			ThresholdTTL       int    // 阈值缓存 TTL（秒）
			RealtimeTTL        int    // 实时数据 TTL（秒）
		}
		Stream   string // 报警事件 Redis Stream 名称
		ListPage int    // 报警列表单页上限
	}

	Notify struct {
		WebhookURL     string // 危急报警 webhook（为空则禁用）
		TimeoutSeconds int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitalwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "vitalwatch")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.VitalsTopic = getEnv("MQTT_VITALS_TOPIC", "vitalwatch/+/vitals")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "fallback_secret")

	cfg.Alert.Cache.ThresholdKeyPrefix = getEnv("CACHE_THRESHOLD_PREFIX", "vitalwatch:patient:")
	cfg.Alert.Cache.ThresholdSuffix = ":thresholds"
	cfg.Alert.Cache.RealtimeKeyPrefix = getEnv("CACHE_REALTIME_PREFIX", "vitalwatch:patient:")
	cfg.Alert.Cache.RealtimeSuffix = ":realtime"
	cfg.Alert.Cache.ThresholdTTL = getEnvInt("CACHE_THRESHOLD_TTL", 60)
	cfg.Alert.Cache.RealtimeTTL = getEnvInt("CACHE_REALTIME_TTL", 30)
	cfg.Alert.Stream = getEnv("ALERT_STREAM", "vitalwatch:alerts:stream")
	cfg.Alert.ListPage = getEnvInt("ALERT_LIST_PAGE", 50)

	cfg.Notify.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Notify.TimeoutSeconds = getEnvInt("ALERT_WEBHOOK_TIMEOUT", 5)

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
