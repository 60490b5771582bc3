package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Activity  ActivityConfig  `mapstructure:"activity"`
	Milestone MilestoneConfig `mapstructure:"milestone"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
	// RequestRateLimit 每个客户端每分钟可提交的指导申请数（0 表示不限）
	RequestRateLimit int `mapstructure:"request_rate_limit"`
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
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
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
	// MatchCacheTTL 匹配排名缓存时长；排名仅供参考，短暂过期可接受
	MatchCacheTTL time.Duration `mapstructure:"match_cache_ttl"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MatchingConfig 匹配评分权重
type MatchingConfig struct {
	SkillWeight    float64 `mapstructure:"skill_weight"`
	InterestWeight float64 `mapstructure:"interest_weight"`
	CapacityWeight float64 `mapstructure:"capacity_weight"`
}

// ActivityConfig 不活跃预警阈值（天）
type ActivityConfig struct {
	ModerateDays int `mapstructure:"moderate_days"`
	WarningDays  int `mapstructure:"warning_days"`
	CriticalDays int `mapstructure:"critical_days"`
}

// MilestoneConfig 里程碑模板配置
type MilestoneConfig struct {
	// TemplateFile 为空时使用内置模板
	TemplateFile       string `mapstructure:"template_file"`
	DefaultProjectType string `mapstructure:"default_project_type"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.request_rate_limit", 10)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "supervisor_works")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.match_cache_ttl", "2m")

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.issuer", "supervisor-works")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("matching.skill_weight", 0.5)
	v.SetDefault("matching.interest_weight", 0.35)
	v.SetDefault("matching.capacity_weight", 0.15)

	v.SetDefault("activity.moderate_days", 5)
	v.SetDefault("activity.warning_days", 7)
	v.SetDefault("activity.critical_days", 14)

	v.SetDefault("milestone.template_file", "")
	v.SetDefault("milestone.default_project_type", "msc_dissertation")

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
	v.SetEnvPrefix("SWORKS")
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
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if err := c.Matching.Validate(); err != nil {
		return err
	}
	return c.Activity.Validate()
}

// Validate 权重不得为负，且总和必须为 1
func (m *MatchingConfig) Validate() error {
	if m.SkillWeight < 0 || m.InterestWeight < 0 || m.CapacityWeight < 0 {
		return fmt.Errorf("配置校验失败: matching 权重不能为负数")
	}
	sum := m.SkillWeight + m.InterestWeight + m.CapacityWeight
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("配置校验失败: matching 权重之和必须为 1，当前为 %.4f", sum)
	}
	return nil
}

// Validate 阈值必须严格递增
func (a *ActivityConfig) Validate() error {
	if a.ModerateDays <= 0 || a.WarningDays <= a.ModerateDays || a.CriticalDays <= a.WarningDays {
		return fmt.Errorf("配置校验失败: activity 阈值必须满足 0 < moderate < warning < critical")
	}
	return nil
}
