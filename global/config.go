package global

import (
	"strings"
	"time"

	"YChat/logger"
	"YChat/tools/ids"

	"github.com/spf13/viper"
)

// AppConfig is the process-wide configuration, loaded once at startup.
type AppConfig struct {
	Listen string `mapstructure:"listen"`
	NodeID int64  `mapstructure:"node_id"`

	Mongo struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
	} `mapstructure:"mongo"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"jwt"`

	Limits struct {
		MinUsernameLen     int   `mapstructure:"min_username_len"`
		MinPasswordLen     int   `mapstructure:"min_password_len"`
		MaxAttachmentBytes int64 `mapstructure:"max_attachment_bytes"`
	} `mapstructure:"limits"`

	Presence struct {
		MirrorTTL time.Duration `mapstructure:"mirror_ttl"`
	} `mapstructure:"presence"`
}

var appConfig AppConfig

// Load reads config.yaml (working dir or /etc/ychat) with YCHAT_* env
// overrides. Missing file is fine, defaults cover local development.
func Load() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/ychat")
	v.SetEnvPrefix("ychat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":3000")
	v.SetDefault("node_id", 1)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "ychat")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "dev-only-secret-change-me")
	v.SetDefault("jwt.ttl", 2*time.Hour)
	v.SetDefault("limits.min_username_len", 4)
	v.SetDefault("limits.min_password_len", 8)
	v.SetDefault("limits.max_attachment_bytes", 5<<20)
	v.SetDefault("presence.mirror_ttl", 5*time.Minute)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		logger.Info("no config file found, using defaults")
	}

	if err := v.Unmarshal(&appConfig); err != nil {
		return err
	}

	ids.SetNodeID(appConfig.NodeID)
	return nil
}

func Config() *AppConfig { return &appConfig }

func JwtSecret() []byte { return []byte(appConfig.JWT.Secret) }
