package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobguard/internal/constants"
	"github.com/jobguard/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	UserJWT     JWTConfig         `mapstructure:"user_jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Quota       QuotaConfig       `mapstructure:"quota"`
	Attribution AttributionConfig `mapstructure:"attribution"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Authz       AuthzConfig       `mapstructure:"authz"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release

	ReadHeaderTimeoutSeconds int `mapstructure:"read_header_timeout_seconds"`
	ReadTimeoutSeconds       int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds      int `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds       int `mapstructure:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds   int `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// seconds 非正数时使用 fallback
func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// ReadHeaderTimeout 读取请求头超时
func (c ServerConfig) ReadHeaderTimeout() time.Duration {
	return seconds(c.ReadHeaderTimeoutSeconds, 5)
}

// ReadTimeout 读取请求超时
func (c ServerConfig) ReadTimeout() time.Duration {
	return seconds(c.ReadTimeoutSeconds, 15)
}

// WriteTimeout 写响应超时
func (c ServerConfig) WriteTimeout() time.Duration {
	return seconds(c.WriteTimeoutSeconds, 15)
}

// IdleTimeout keep-alive 空闲超时
func (c ServerConfig) IdleTimeout() time.Duration {
	return seconds(c.IdleTimeoutSeconds, 60)
}

// ShutdownTimeout 优雅停机等待时间
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutSeconds, 10)
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置（令牌由主站签发，本服务只做校验）
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	ClickRateLimit RateLimitConfig `mapstructure:"click_rate_limit"`
	TrustedProxies []string        `mapstructure:"trusted_proxies"`
}

// RateLimitConfig 固定窗口限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// RiskConfig 风控评分配置
type RiskConfig struct {
	HighRiskThreshold    int      `mapstructure:"high_risk_threshold"`
	ScoreCacheTTLSeconds int      `mapstructure:"score_cache_ttl_seconds"`
	ScoreCacheLocal      bool     `mapstructure:"score_cache_local"` // Redis 未启用时是否用进程内缓存，仅限单实例
	SybilWindowDays      int      `mapstructure:"sybil_window_days"`
	SybilFreeIPs         int      `mapstructure:"sybil_free_ips"`
	SybilPointsPerIP     int      `mapstructure:"sybil_points_per_ip"`
	ProxyPoints          int      `mapstructure:"proxy_points"`
	HostingPoints        int      `mapstructure:"hosting_points"`
	RepeatThreshold      int64    `mapstructure:"repeat_threshold"`
	RepeatPointsPerSeen  int      `mapstructure:"repeat_points_per_seen"`
	RepeatPointsCap      int      `mapstructure:"repeat_points_cap"`
	ProxyCIDRs           []string `mapstructure:"proxy_cidrs"`
	HostingCIDRs         []string `mapstructure:"hosting_cidrs"`
	AsyncObservations    bool     `mapstructure:"async_observations"`
}

// ScoreCacheTTL 评分缓存时长
func (c RiskConfig) ScoreCacheTTL() time.Duration {
	if c.ScoreCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ScoreCacheTTLSeconds) * time.Second
}

// QuotaConfig 投递配额配置
type QuotaConfig struct {
	DefaultAllowedPerDay   int64  `mapstructure:"default_allowed_per_day"`
	DefaultCumulativeLimit int64  `mapstructure:"default_cumulative_limit"`
	Timezone               string `mapstructure:"timezone"`
	BucketDays             int    `mapstructure:"bucket_days"`
	MaxRetries             int    `mapstructure:"max_retries"`
	RetryBackoffMS         int    `mapstructure:"retry_backoff_ms"`
}

// AttributionConfig 推广归因配置
type AttributionConfig struct {
	ClickIDSource        string `mapstructure:"click_id_source"`           // cookie / header / body
	ClickIDCookie        string `mapstructure:"click_id_cookie"`
	ClickIDHeader        string `mapstructure:"click_id_header"`
	ClickIDField         string `mapstructure:"click_id_field"`
	CookieMaxAgeDays     int    `mapstructure:"cookie_max_age_days"`
	DefaultCurrency      string `mapstructure:"default_currency"`
	AsyncQualify         bool   `mapstructure:"async_qualify"`
	UnresolvedReviewMins int    `mapstructure:"unresolved_review_minutes"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// AuthzConfig 后台角色授权配置
type AuthzConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	BootstrapBuiltin bool `mapstructure:"bootstrap_builtin"`
}

// Validate 校验关键配置取值
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Risk.HighRiskThreshold < 0 || c.Risk.HighRiskThreshold > 100 {
		return fmt.Errorf("risk.high_risk_threshold must be within [0,100], got %d", c.Risk.HighRiskThreshold)
	}
	if c.Quota.BucketDays < 1 {
		return fmt.Errorf("quota.bucket_days must be >= 1, got %d", c.Quota.BucketDays)
	}
	if _, err := time.LoadLocation(strings.TrimSpace(c.Quota.Timezone)); err != nil {
		return fmt.Errorf("quota.timezone invalid: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Attribution.ClickIDSource)) {
	case constants.ClickIDSourceCookie, constants.ClickIDSourceHeader, constants.ClickIDSourceBody:
	default:
		return fmt.Errorf("attribution.click_id_source must be cookie, header or body, got %q", c.Attribution.ClickIDSource)
	}
	return nil
}

// SetDefaults 写入默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_header_timeout_seconds", 5)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/jobguard.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.issuer", "")
	v.SetDefault("user_jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", constants.RedisPrefixDefault)
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		constants.QueueDefault:  10,
		constants.QueueCritical: 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Click-ID",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.click_rate_limit.window_seconds", 60)
	v.SetDefault("security.click_rate_limit.max_requests", 30)
	v.SetDefault("security.click_rate_limit.block_seconds", 300)
	v.SetDefault("security.trusted_proxies", []string{})
	v.SetDefault("risk.high_risk_threshold", 70)
	v.SetDefault("risk.score_cache_ttl_seconds", 60)
	v.SetDefault("risk.score_cache_local", false)
	v.SetDefault("risk.sybil_window_days", 30)
	v.SetDefault("risk.sybil_free_ips", 3)
	v.SetDefault("risk.sybil_points_per_ip", 15)
	v.SetDefault("risk.proxy_points", 25)
	v.SetDefault("risk.hosting_points", 40)
	v.SetDefault("risk.repeat_threshold", 10)
	v.SetDefault("risk.repeat_points_per_seen", 5)
	v.SetDefault("risk.repeat_points_cap", 50)
	v.SetDefault("risk.proxy_cidrs", []string{})
	v.SetDefault("risk.hosting_cidrs", []string{})
	v.SetDefault("risk.async_observations", false)
	v.SetDefault("quota.default_allowed_per_day", 50)
	v.SetDefault("quota.default_cumulative_limit", 500)
	v.SetDefault("quota.timezone", "UTC")
	v.SetDefault("quota.bucket_days", 1)
	v.SetDefault("quota.max_retries", 3)
	v.SetDefault("quota.retry_backoff_ms", 20)
	v.SetDefault("attribution.click_id_source", constants.ClickIDSourceCookie)
	v.SetDefault("attribution.click_id_cookie", "jg_click_id")
	v.SetDefault("attribution.click_id_header", "X-Click-ID")
	v.SetDefault("attribution.click_id_field", "click_id")
	v.SetDefault("attribution.cookie_max_age_days", 30)
	v.SetDefault("attribution.default_currency", constants.CurrencyDefault)
	v.SetDefault("attribution.async_qualify", false)
	v.SetDefault("attribution.unresolved_review_minutes", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "jobguard")
	v.SetDefault("authz.enabled", true)
	v.SetDefault("authz.bootstrap_builtin", true)
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.GetViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("./")    // 备用路径
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()                                   // 自动读取环境变量
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorw("config_validate_failed", "error", err)
		panic(fmt.Errorf("配置校验失败: %w", err))
	}
	return cfg
}

// Decode 将 viper 实例解码为配置结构
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
