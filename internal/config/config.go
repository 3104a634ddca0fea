package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 导览客户端配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// GoD 服务器主题
	GoD struct {
		UpTopic   string // 请求主题前缀，如 "god/{client}/up"
		DownTopic string // 响应/推送主题前缀，如 "god/{client}/down"
	}

	// 原生壳主题
	Native struct {
		OutTopic  string // 客户端 -> 原生壳
		InTopic   string // 原生壳 -> 客户端（beacon、设备信息、token）
		UserAgent string // 用于平台识别
	}

	Guide struct {
		StartLocationID    int
		StatusPollDelay    time.Duration
		StatusPollInterval time.Duration
		BeaconRate         float64 // 每秒允许处理的 beacon 数，<=0 表示不限
		BeaconBurst        int
		ActionStream       string // 状态动作日志镜像到的 Redis Stream，空表示关闭
		LoopBuffer         int

		// 原生壳上报设备信息后用于 registerOD 的身份
		Registration struct {
			Identifier string
			Email      string
			Password   string
			Guest      bool
		}
	}

	Content struct {
		BaseURL string
		Timeout time.Duration
	}

	Session struct {
		TokenKey string
	}

	Journal struct {
		Enabled bool
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "meeteux")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 4)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 2)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 4)
	cfg.Redis.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second)
	cfg.Redis.OpTimeout = getEnvDuration("REDIS_OP_TIMEOUT", time.Second)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "meeteux-guide")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.ConnectTimeout = getEnvDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second)
	cfg.MQTT.PublishTimeout = getEnvDuration("MQTT_PUBLISH_TIMEOUT", 2*time.Second)

	cfg.GoD.UpTopic = getEnv("GOD_TOPIC_UP", "god/"+cfg.MQTT.ClientID+"/up")
	cfg.GoD.DownTopic = getEnv("GOD_TOPIC_DOWN", "god/"+cfg.MQTT.ClientID+"/down")

	cfg.Native.OutTopic = getEnv("NATIVE_TOPIC_OUT", "native/"+cfg.MQTT.ClientID+"/out")
	cfg.Native.InTopic = getEnv("NATIVE_TOPIC_IN", "native/"+cfg.MQTT.ClientID+"/in")
	cfg.Native.UserAgent = getEnv("NATIVE_USER_AGENT", "")

	cfg.Guide.StartLocationID = getEnvInt("GUIDE_START_LOCATION_ID", 0)
	// 首次 100ms 后检查，之后每 50s 一次
	cfg.Guide.StatusPollDelay = getEnvDuration("GUIDE_STATUS_POLL_DELAY", 100*time.Millisecond)
	cfg.Guide.StatusPollInterval = getEnvDuration("GUIDE_STATUS_POLL_INTERVAL", 50*time.Second)
	cfg.Guide.BeaconRate = getEnvFloat("GUIDE_BEACON_RATE", 5)
	cfg.Guide.BeaconBurst = getEnvInt("GUIDE_BEACON_BURST", 10)
	cfg.Guide.ActionStream = getEnv("GUIDE_ACTION_STREAM", "")
	cfg.Guide.LoopBuffer = getEnvInt("GUIDE_LOOP_BUFFER", 256)
	cfg.Guide.Registration.Identifier = getEnv("GUIDE_IDENTIFIER", "")
	cfg.Guide.Registration.Email = getEnv("GUIDE_EMAIL", "")
	cfg.Guide.Registration.Password = getEnv("GUIDE_PASSWORD", "")
	cfg.Guide.Registration.Guest = getEnvBool("GUIDE_GUEST", true)

	cfg.Content.BaseURL = getEnv("CONTENT_BASE_URL", "")
	cfg.Content.Timeout = getEnvDuration("CONTENT_TIMEOUT", 10*time.Second)

	cfg.Session.TokenKey = getEnv("SESSION_TOKEN_KEY", "meeteux:token:"+cfg.MQTT.ClientID)

	cfg.Journal.Enabled = getEnvBool("JOURNAL_ENABLED", false)

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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
