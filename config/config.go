package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能不带 zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Cron       CronConfig       `mapstructure:"cron"`
	Feature    FeatureConfig    `mapstructure:"feature"`
}

// AppConfig 业务全局配置
type AppConfig struct {
	Timezone string `mapstructure:"timezone"` // 勤务日期与时刻的解释时区
}

// Location 返回业务时区；Validate 已保证可加载
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 配置
// Access Token 由外部认证服务签发，本服务只做校验
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	ScanTokenTTL   time.Duration `mapstructure:"scan_token_ttl"` // 设施端二维码有效期
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`        // 为空时仅输出到 stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单文件上限
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// AttendanceConfig 出勤打卡配置
type AttendanceConfig struct {
	CheckInOpenBefore        time.Duration `mapstructure:"check_in_open_before"`
	EmergencyCodeMaxAttempts int           `mapstructure:"emergency_code_max_attempts"`
	EmergencySessionTTL      time.Duration `mapstructure:"emergency_session_ttl"` // 失败计数在无操作后的存活时间
	RateLimit                int           `mapstructure:"rate_limit"`            // 打卡接口每窗口请求上限
	RateWindow               time.Duration `mapstructure:"rate_window"`
}

// CronConfig 定时任务配置
type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ExpireSpec string `mapstructure:"expire_spec"`
	RetireSpec string `mapstructure:"retire_spec"`
}

// FeatureConfig 功能开关配置
type FeatureConfig struct {
	RejectApplyWhenFull bool `mapstructure:"reject_apply_when_full"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("app.timezone", "Asia/Tokyo")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "share_worker")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Tokyo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "share-worker")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.scan_token_ttl", "2m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("attendance.check_in_open_before", "60m")
	v.SetDefault("attendance.emergency_code_max_attempts", 5)
	v.SetDefault("attendance.emergency_session_ttl", "30m")
	v.SetDefault("attendance.rate_limit", 20)
	v.SetDefault("attendance.rate_window", "1m")

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.expire_spec", "*/10 * * * *")
	v.SetDefault("cron.retire_spec", "30 3 * * *")

	v.SetDefault("feature.reject_apply_when_full", false)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SHIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: app.timezone 无效: %w", err)
	}
	if c.Attendance.EmergencyCodeMaxAttempts <= 0 {
		return fmt.Errorf("配置校验失败: attendance.emergency_code_max_attempts 必须大于 0")
	}
	if c.Attendance.EmergencySessionTTL <= 0 {
		return fmt.Errorf("配置校验失败: attendance.emergency_session_ttl 必须大于 0")
	}
	if c.Auth.ScanTokenTTL <= 0 {
		return fmt.Errorf("配置校验失败: auth.scan_token_ttl 必须大于 0")
	}
	return nil
}
