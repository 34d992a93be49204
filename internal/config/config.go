package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Data      DataConfig      `mapstructure:"data"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Gallery   GalleryConfig   `mapstructure:"gallery"`
	Clamd     ClamdConfig     `mapstructure:"clamd"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int    `mapstructure:"port"`
	InternalSecret string `mapstructure:"internal_secret"`
}

// DataConfig 指定课程表与图库元数据的落盘目录。
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig selects the gallery object storage backend.
type StorageConfig struct {
	// Backend is "local" or "minio".
	Backend  string `mapstructure:"backend"`
	LocalDir string `mapstructure:"local_dir"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// OCRConfig 指向外部图片文字识别服务。APIURL 为空时图片课程表不可用。
type OCRConfig struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
}

// MessagingConfig 描述提醒消息回传宿主机器人的通道。
type MessagingConfig struct {
	// Mode is "webhook" or "websocket".
	Mode         string `mapstructure:"mode"`
	WebhookURL   string `mapstructure:"webhook_url"`
	WebsocketURL string `mapstructure:"websocket_url"`
}

// ReminderConfig contains the sweep cadence and the fire-window length.
type ReminderConfig struct {
	IntervalSeconds  int `mapstructure:"interval_seconds"`
	LookaheadSeconds int `mapstructure:"lookahead_seconds"`
}

// GalleryConfig holds the defaults applied to newly created galleries.
type GalleryConfig struct {
	Capacity  int  `mapstructure:"capacity"`
	Compress  bool `mapstructure:"compress"`
	Duplicate bool `mapstructure:"duplicate"`
	Fuzzy     bool `mapstructure:"fuzzy"`
}

// ClamdConfig 指定病毒扫描服务地址，留空则跳过扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisAddr builds the host:port address used by asynq and go-redis.
func (r RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("data.dir", "data")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "data/galleries")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "galleries")
	v.SetDefault("messaging.mode", "webhook")
	v.SetDefault("reminder.interval_seconds", 60)
	v.SetDefault("reminder.lookahead_seconds", 300)
	v.SetDefault("gallery.capacity", 200)
	v.SetDefault("gallery.compress", true)
	v.SetDefault("gallery.duplicate", true)
	v.SetDefault("gallery.fuzzy", false)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                   "API_PORT",
		"api.internal_secret":        "INTERNAL_API_SECRET",
		"data.dir":                   "DATA_DIR",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"storage.backend":            "STORAGE_BACKEND",
		"storage.local_dir":          "STORAGE_LOCAL_DIR",
		"minio.endpoint":             "MINIO_ENDPOINT",
		"minio.access_key_id":        "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":    "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":              "MINIO_USE_SSL",
		"minio.bucket":               "MINIO_BUCKET",
		"ocr.api_url":                "OCR_API_URL",
		"ocr.api_key":                "OCR_API_KEY",
		"messaging.mode":             "MESSAGING_MODE",
		"messaging.webhook_url":      "MESSAGING_WEBHOOK_URL",
		"messaging.websocket_url":    "MESSAGING_WEBSOCKET_URL",
		"reminder.interval_seconds":  "REMINDER_INTERVAL_SECONDS",
		"reminder.lookahead_seconds": "REMINDER_LOOKAHEAD_SECONDS",
		"gallery.capacity":           "GALLERY_DEFAULT_CAPACITY",
		"gallery.compress":           "GALLERY_DEFAULT_COMPRESS",
		"gallery.duplicate":          "GALLERY_DEFAULT_DEDUPE",
		"gallery.fuzzy":              "GALLERY_DEFAULT_FUZZY",
		"clamd.addr":                 "CLAMD_ADDR",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Data.Dir == "" {
		return errors.New("data dir is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.LocalDir == "" {
			return errors.New("storage local dir is required")
		}
	case "minio":
		if cfg.MinIO.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	switch cfg.Messaging.Mode {
	case "webhook", "websocket":
	default:
		return fmt.Errorf("unknown messaging mode %q", cfg.Messaging.Mode)
	}
	if cfg.Reminder.IntervalSeconds <= 0 {
		return errors.New("reminder interval must be positive")
	}
	if cfg.Reminder.LookaheadSeconds <= 0 {
		return errors.New("reminder lookahead must be positive")
	}
	if cfg.Gallery.Capacity <= 0 {
		return errors.New("gallery default capacity must be positive")
	}
	return nil
}
