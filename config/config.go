package config

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Cafeteria  CafeteriaConfig  `mapstructure:"cafeteria"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary"`
	Log        LogConfig        `mapstructure:"log"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	Mode           string `mapstructure:"mode"`
	Env            string `mapstructure:"env"`
	FrontendOrigin string `mapstructure:"frontend_origin"`
}

// IsProduction 生产环境隐藏错误详情
func (s ServerConfig) IsProduction() bool { return s.Env == "production" }

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
}

// CafeteriaConfig 营业时间与取餐时段
type CafeteriaConfig struct {
	OpenHour     int    `mapstructure:"open_hour"`
	CloseHour    int    `mapstructure:"close_hour"`
	TimeZone     string `mapstructure:"timezone"`
	SlotMinutes  int    `mapstructure:"slot_minutes"`
	SlotCapacity int    `mapstructure:"slot_capacity"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
	// MinimumAmount is in minor units (paise).
	MinimumAmount int64 `mapstructure:"minimum_amount"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Folder    string `mapstructure:"folder"`
	MaxBytes  int64  `mapstructure:"max_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// 兼容旧部署的环境变量名
var envAliases = map[string][]string{
	"jwt.access_secret":       {"ACCESS_TOKEN_SECRET"},
	"jwt.refresh_secret":      {"REFRESH_TOKEN_SECRET"},
	"cafeteria.slot_capacity": {"SLOT_CAPACITY"},
	"stripe.secret_key":       {"STRIPE_SECRET_KEY"},
	"stripe.webhook_secret":   {"STRIPE_WEBHOOK_SECRET"},
	"stripe.currency":         {"STRIPE_CURRENCY"},
	"cloudinary.cloud_name":   {"CLOUDINARY_CLOUD_NAME"},
	"cloudinary.api_key":      {"CLOUDINARY_API_KEY"},
	"cloudinary.api_secret":   {"CLOUDINARY_API_SECRET"},
	"server.port":             {"PORT"},
	"server.env":              {"NODE_ENV", "APP_ENV"},
	"server.frontend_origin":  {"FRONTEND_ORIGIN"},
	"database.dsn":            {"DATABASE_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.frontend_origin", "http://localhost:5173")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=eazyeats port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_secret", "dev_access_secret")
	v.SetDefault("jwt.refresh_secret", "dev_refresh_secret")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("cafeteria.open_hour", 9)
	v.SetDefault("cafeteria.close_hour", 18)
	v.SetDefault("cafeteria.timezone", "")
	v.SetDefault("cafeteria.slot_minutes", 15)
	v.SetDefault("cafeteria.slot_capacity", 20)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", "inr")
	v.SetDefault("stripe.minimum_amount", 5000)

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "eazyeats")
	v.SetDefault("cloudinary.max_bytes", 5*1024*1024)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "eazyeats")

	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 20)
}

// Load 读取 config.yaml（可选）并叠加环境变量
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith 用指定的 viper 实例加载配置
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验服务无法运行的配置
func (c *Config) Validate() error {
	cf := c.Cafeteria
	if cf.OpenHour < 0 || cf.OpenHour > 23 || cf.CloseHour < 1 || cf.CloseHour > 24 || cf.OpenHour >= cf.CloseHour {
		return errors.Errorf("invalid cafeteria hours %d-%d", cf.OpenHour, cf.CloseHour)
	}
	if cf.SlotMinutes <= 0 || cf.SlotMinutes > 60 {
		return errors.Errorf("invalid slot_minutes %d", cf.SlotMinutes)
	}
	if cf.SlotCapacity <= 0 {
		return errors.Errorf("invalid slot_capacity %d", cf.SlotCapacity)
	}
	if c.Server.IsProduction() && (c.JWT.AccessSecret == "dev_access_secret" || c.JWT.RefreshSecret == "dev_refresh_secret") {
		return errors.New("jwt secrets must be set in production")
	}
	return nil
}
