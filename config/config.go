package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Game        GameConfig        `mapstructure:"game"`
	Stats       StatsConfig       `mapstructure:"stats"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Content     ContentConfig     `mapstructure:"content"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress     string        `mapstructure:"http_address" validate:"required"`
	RPCAddress      string        `mapstructure:"rpc_address"`
	HealthAddress   string        `mapstructure:"health_address"`
	Heartbeat       time.Duration `mapstructure:"heartbeat" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// AllowedOrigins websocket 允许的 Origin；为空时只接受同源，"*" 接受所有
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,required"`
}

type DatabaseConfig struct {
	// Driver 选择结果存储: gorm | pq | memory
	Driver   string         `mapstructure:"driver" validate:"oneof=gorm pq memory"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	// ConnectTimeout 启动时重试连接的总时长
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gte=0"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// RedisConfig 登录 token 必须存 Redis，缓存可以用 leaderboard.cache_ttl=0 关闭
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type AuthConfig struct {
	// DevLogin 允许 POST /auth/session 直接按 user_id 登录，仅限开发环境
	DevLogin bool          `mapstructure:"dev_login"`
	TokenTTL time.Duration `mapstructure:"token_ttl" validate:"gte=0"`
}

type GameConfig struct {
	ScoringPolicy string `mapstructure:"scoring_policy" validate:"omitempty,oneof=flat streak_bonus"`
}

type StatsConfig struct {
	WinThreshold int `mapstructure:"win_threshold" validate:"gte=0"`
}

type LeaderboardConfig struct {
	SampleSize int `mapstructure:"sample_size" validate:"gte=0,lte=1000"`
	TopN       int `mapstructure:"top_n" validate:"gte=0"`
	// CacheTTL 为 0 时不缓存
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	// WarmupInterval 定时预热排行榜缓存，0 表示关闭
	WarmupInterval time.Duration `mapstructure:"warmup_interval" validate:"gte=0"`
}

type ContentConfig struct {
	BankFile     string        `mapstructure:"bank_file"`
	GeneratorURL string        `mapstructure:"generator_url" validate:"omitempty,url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.health_address", ":8082")
	v.SetDefault("server.heartbeat", 60*time.Second)
	v.SetDefault("server.idle_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "gorm")
	v.SetDefault("database.connect_timeout", 30*time.Second)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "analogyarena")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.dev_login", false)
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("game.scoring_policy", "flat")
	v.SetDefault("stats.win_threshold", 10)

	v.SetDefault("leaderboard.sample_size", 1000)
	v.SetDefault("leaderboard.top_n", 50)
	v.SetDefault("leaderboard.cache_ttl", time.Minute)
	v.SetDefault("leaderboard.warmup_interval", 0)

	v.SetDefault("content.bank_file", "")
	v.SetDefault("content.generator_url", "")
	v.SetDefault("content.api_key", "")
	v.SetDefault("content.timeout", 20*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig 读取 path 下的 config.yaml（可选）、.env 和环境变量
//
// 环境变量使用 ARENA_ 前缀，层级用下划线，例如 ARENA_DATABASE_DRIVER。
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("arena")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
