package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Pacing   PacingConfig   `mapstructure:"pacing"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	BodyLimit    int64      `mapstructure:"body_limit"` // 请求体上限（字节）
	RateLimit    int        `mapstructure:"rate_limit"` // 每 IP 每分钟请求数，0 表示不限流
	CORS         CORSConfig `mapstructure:"cors"`
	ShutdownWait int        `mapstructure:"shutdown_wait"` // 优雅关闭等待（秒）
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
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
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

// AuthConfig JWT 认证配置
// 登录由外部身份系统完成，本服务只校验访问令牌
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GradePrerequisites 某个年级视图需要前置展示的先修年级
type GradePrerequisites struct {
	Grade         string   `mapstructure:"grade"`
	Prerequisites []string `mapstructure:"prerequisites"`
}

// PacingConfig 教学进度排期配置
type PacingConfig struct {
	DefaultSchoolYear  string               `mapstructure:"default_school_year"`
	PrerequisiteGrades []GradePrerequisites `mapstructure:"prerequisite_grades"`
	SessionTTL         time.Duration        `mapstructure:"session_ttl"`       // 选日会话空闲过期时间
	SaveTimeout        time.Duration        `mapstructure:"save_timeout"`      // 单次保存超时
	LockTTL            time.Duration        `mapstructure:"lock_ttl"`          // 单元写锁有效期
	DaysOffCacheTTL    time.Duration        `mapstructure:"days_off_cache_ttl"`
	ICSFetchTimeout    time.Duration        `mapstructure:"ics_fetch_timeout"`
}

// PrerequisitesFor 返回年级视图的先修年级，未配置时为空
func (c *PacingConfig) PrerequisitesFor(grade string) []string {
	for _, p := range c.PrerequisiteGrades {
		if strings.EqualFold(p.Grade, grade) {
			return p.Prerequisites
		}
	}
	return nil
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit", 10<<20)
	v.SetDefault("server.rate_limit", 300)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_wait", 10)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "pacing_calendar")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "pacing-calendar")
	v.SetDefault("auth.access_token_ttl", "12h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("pacing.default_school_year", "2025-2026")
	v.SetDefault("pacing.prerequisite_grades", []map[string]any{
		{"grade": "Algebra 1", "prerequisites": []string{"8"}},
	})
	v.SetDefault("pacing.session_ttl", "30m")
	v.SetDefault("pacing.save_timeout", "10s")
	v.SetDefault("pacing.lock_ttl", "5s")
	v.SetDefault("pacing.days_off_cache_ttl", "10m")
	v.SetDefault("pacing.ics_fetch_timeout", "15s")

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
	v.SetEnvPrefix("PACING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
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
	if c.Pacing.SessionTTL <= 0 {
		return fmt.Errorf("配置校验失败: pacing.session_ttl 必须大于 0")
	}
	if c.Pacing.SaveTimeout <= 0 {
		return fmt.Errorf("配置校验失败: pacing.save_timeout 必须大于 0")
	}
	return nil
}
