package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "lodgfy-booking/common/config"

	"github.com/joho/godotenv"
)

// Config lodgfy-booking (HTTP API) settings
type Config struct {
	HTTP struct {
		Addr         string
		CORSOrigins  []string
		WriteTimeout time.Duration
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	MQTT      MQTTConfig
	Kafka     commoncfg.KafkaConfig
	Log       struct {
		Level  string
		Format string
		File   string
	}
	Events  EventsConfig
	Booking BookingConfig
	Lock    struct {
		Mode string // local | redis
		TTL  time.Duration
	}
	GuestDirectory GuestDirectoryConfig
	Auth           struct {
		JWTSecret string
	}
}

// MQTTConfig event publishing over MQTT (disabled by default)
type MQTTConfig struct {
	commoncfg.MQTTConfig
	Enabled bool
}

// EventsConfig post-commit dispatcher settings
type EventsConfig struct {
	Sinks       []string // log, audit, redis, mqtt, kafka
	QueueSize   int
	Workers     int
	Stream      string
	StreamMax   int64
	SinkTimeout time.Duration
}

// BookingConfig reservation rules
type BookingConfig struct {
	MaxStayDays int
	Location    *time.Location
}

// GuestDirectoryConfig where guest existence is resolved
type GuestDirectoryConfig struct {
	Mode    string // postgres | http | memory
	BaseURL string
	Timeout time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))
	cfg.HTTP.WriteTimeout = time.Duration(parseInt(getEnv("HTTP_WRITE_TIMEOUT_SEC", "15"), 15)) * time.Second

	// DB is tried by default; the service falls back to memory stores when it is unreachable.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "lodgfy",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "lodgfy-booking"
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = "lodgfy"
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")

	cfg.Kafka = commoncfg.KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		Topic:    "reservation-events",
		ClientID: "lodgfy-booking",
	}
	cfg.Kafka.LoadFromEnv("KAFKA")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.File = getEnv("LOG_FILE", "")

	cfg.Events.Sinks = splitList(strings.ToLower(getEnv("EVENT_SINKS", "log")))
	cfg.Events.QueueSize = parseInt(getEnv("EVENT_QUEUE_SIZE", "256"), 256)
	cfg.Events.Workers = parseInt(getEnv("EVENT_WORKERS", "2"), 2)
	cfg.Events.Stream = getEnv("EVENT_STREAM", "lodgfy:reservations")
	cfg.Events.StreamMax = int64(parseInt(getEnv("EVENT_STREAM_MAXLEN", "10000"), 10000))
	cfg.Events.SinkTimeout = time.Duration(parseInt(getEnv("EVENT_SINK_TIMEOUT_MS", "3000"), 3000)) * time.Millisecond

	cfg.Booking.MaxStayDays = parseInt(getEnv("BOOKING_MAX_STAY_DAYS", "365"), 365)
	cfg.Booking.Location = time.UTC
	if tz := getEnv("BOOKING_TIMEZONE", ""); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			cfg.Booking.Location = loc
		}
	}

	cfg.Lock.Mode = getEnv("UNIT_LOCK_MODE", "local")
	cfg.Lock.TTL = time.Duration(parseInt(getEnv("UNIT_LOCK_TTL_SEC", "10"), 10)) * time.Second

	cfg.GuestDirectory.Mode = getEnv("GUEST_DIRECTORY", "postgres")
	cfg.GuestDirectory.BaseURL = getEnv("GUEST_DIRECTORY_URL", "http://localhost:8081")
	cfg.GuestDirectory.Timeout = time.Duration(parseInt(getEnv("GUEST_DIRECTORY_TIMEOUT_MS", "2000"), 2000)) * time.Millisecond

	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", "")

	return cfg
}

// HasSink reports whether name is listed in EVENT_SINKS.
func (e EventsConfig) HasSink(name string) bool {
	for _, s := range e.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
