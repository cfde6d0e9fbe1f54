package config

import (
	"crypto/md5"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"gopkg.in/yaml.v3"

	"github.com/vclink/vclink-bridge/pkg/crypto"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Cloud    CloudConfig    `yaml:"cloud"`
	Push     PushConfig     `yaml:"push"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// === 云端接入配置 ===

// CloudConfig 厂商云端账号与协议参数
type CloudConfig struct {
	BaseURL  string `yaml:"base_url"`
	Account  string `yaml:"account"`
	Password string `yaml:"password"`

	Device DeviceConfig `yaml:"device"`

	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// 触发后先等推送，再降级轮询
	PushWait     time.Duration `yaml:"push_wait"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`

	// 云端限流时的固定间隔重试
	RateLimitRetries  int           `yaml:"rate_limit_retries"`
	RateLimitInterval time.Duration `yaml:"rate_limit_interval"`

	// 每辆车的状态刷新周期
	UpdateInterval time.Duration `yaml:"update_interval"`

	// 实时状态降级缓存容量
	CacheSize int `yaml:"cache_size"`
}

// DeviceConfig 模拟的手机客户端标识
type DeviceConfig struct {
	IMEI        string `yaml:"imei"`
	MAC         string `yaml:"mac"`
	Model       string `yaml:"model"`
	SDKLevel    string `yaml:"sdk_level"`
	AppVersion  string `yaml:"app_version"`
	CountryCode string `yaml:"country_code"`
	Language    string `yaml:"language"`
}

// PushConfig 推送通道配置
type PushConfig struct {
	// Address为空时使用云端message/broker下发的地址
	Address        string        `yaml:"address"`
	Topic          string        `yaml:"topic"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply environment overrides
	cfg.applyEnvOverrides()

	// 补全默认值
	if err := cfg.setDefaults(); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	// 云端账号可用环境变量注入，避免写进配置文件
	if account := os.Getenv("VCLINK_ACCOUNT"); account != "" {
		c.Cloud.Account = account
	}

	if password := os.Getenv("VCLINK_PASSWORD"); password != "" {
		c.Cloud.Password = password
	}
}

func (c *Config) setDefaults() error {
	if c.Server.Name == "" {
		c.Server.Name = "vclink-bridge"
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = time.Hour
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = -1
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}

	if c.JWT.Secret == "" {
		secret, err := crypto.GenerateRandomString(32)
		if err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		c.JWT.Secret = secret
		log.Warn().Msg("jwt secret not configured, generated a random one; tokens will not survive restarts")
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 24 * time.Hour
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.setCloudDefaults()

	return nil
}

// setCloudDefaults 云端协议参数默认值
func (c *Config) setCloudDefaults() {
	if c.Cloud.BaseURL == "" {
		c.Cloud.BaseURL = "https://tapi.vclink-motors.com"
	}

	if c.Cloud.HTTPTimeout == 0 {
		c.Cloud.HTTPTimeout = 30 * time.Second
	}

	// 推送等待与轮询参数，对应厂商App的默认行为
	if c.Cloud.PushWait == 0 {
		c.Cloud.PushWait = 5 * time.Second
	}
	if c.Cloud.PollInterval == 0 {
		c.Cloud.PollInterval = 2 * time.Second
	}
	if c.Cloud.PollAttempts == 0 {
		c.Cloud.PollAttempts = 12
	}

	if c.Cloud.RateLimitRetries == 0 {
		c.Cloud.RateLimitRetries = 3
	}
	if c.Cloud.RateLimitInterval == 0 {
		c.Cloud.RateLimitInterval = 5 * time.Second
	}

	if c.Cloud.UpdateInterval == 0 {
		c.Cloud.UpdateInterval = 60 * time.Second
	}

	if c.Cloud.CacheSize == 0 {
		c.Cloud.CacheSize = 128
	}

	// 设备标识默认值，模拟一台常见的Android手机
	if c.Cloud.Device.Model == "" {
		c.Cloud.Device.Model = "SM-G9730"
	}
	if c.Cloud.Device.SDKLevel == "" {
		c.Cloud.Device.SDKLevel = "29"
	}
	if c.Cloud.Device.AppVersion == "" {
		c.Cloud.Device.AppVersion = "2.3.0"
	}
	if c.Cloud.Device.CountryCode == "" {
		c.Cloud.Device.CountryCode = "1"
	}
	if c.Cloud.Device.Language == "" {
		c.Cloud.Device.Language = "en"
	}

	// 未配置MAC时从IMEI派生一个本地管理地址，保证每次登录一致
	if c.Cloud.Device.MAC == "" && c.Cloud.Device.IMEI != "" {
		c.Cloud.Device.MAC = deriveMAC(c.Cloud.Device.IMEI)
	}

	if c.Push.ConnectTimeout == 0 {
		c.Push.ConnectTimeout = 10 * time.Second
	}
}

// Validate 校验桥接进程必需的云端账号参数
func (c *CloudConfig) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("cloud account is required")
	}
	if c.Password == "" {
		return fmt.Errorf("cloud password is required")
	}
	if c.Device.IMEI == "" {
		return fmt.Errorf("cloud device imei is required")
	}
	return nil
}

func deriveMAC(imei string) string {
	sum := md5.Sum([]byte(imei))
	return fmt.Sprintf("02:%02X:%02X:%02X:%02X:%02X",
		sum[0], sum[1], sum[2], sum[3], sum[4])
}
