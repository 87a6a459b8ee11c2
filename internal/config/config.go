package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/analytics/internal/domain"
)

const (
	DataSourceSynthetic = "synthetic"
	DataSourcePostgres  = "postgres"

	defaultJWTSecret = "your-secret-key-change-in-production"
)

// Config represents application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Logging   LoggingConfig   `json:"logging"`
	Security  SecurityConfig  `json:"security"`
	SSE       SSEConfig       `json:"sse"`
	Kafka     KafkaConfig     `json:"kafka"`
	Dashboard DashboardConfig `json:"dashboard"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
	Debug        bool          `json:"debug"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	QueryTimeout   time.Duration `json:"query_timeout"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	Timeout  time.Duration `json:"timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AuthEnabled        bool          `json:"auth_enabled"`
	JWTSecret          string        `json:"jwt_secret"`
	JWTExpiration      time.Duration `json:"jwt_expiration"`
	CORSOrigins        []string      `json:"cors_origins"`
	CORSCredentials    bool          `json:"cors_credentials"`
	RateLimitEnabled   bool          `json:"rate_limit_enabled"`
	RateLimitRequests  int           `json:"rate_limit_requests"`
	RateLimitWindow    time.Duration `json:"rate_limit_window"`
	RateLimitBlockTime time.Duration `json:"rate_limit_block_time"`
}

// SSEConfig represents SSE streaming configuration
type SSEConfig struct {
	Enabled           bool          `json:"enabled"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	MaxConnections    int           `json:"max_connections"`
	MessageBufferSize int           `json:"message_buffer_size"`
}

// KafkaConfig represents refresh event publishing configuration
type KafkaConfig struct {
	Enabled      bool          `json:"enabled"`
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DashboardConfig represents snapshot generation configuration
type DashboardConfig struct {
	DataSource        string        `json:"data_source"` // synthetic, postgres
	DefaultRange      string        `json:"default_range"`
	SLATarget         float64       `json:"sla_target"`
	Seed              int64         `json:"seed"` // 0 picks a random seed
	GenerationTimeout time.Duration `json:"generation_timeout"`
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
			Debug:        getEnvBool("DEBUG", true),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "fixora_analytics"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   getEnvDuration("DB_QUERY_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			Timeout:  getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
			JWTExpiration:      getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
			CORSOrigins:        getEnvSlice("CORS_ORIGINS", []string{"*"}),
			CORSCredentials:    getEnvBool("CORS_CREDENTIALS", false),
			RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", false),
			RateLimitRequests:  getEnvInt("RATE_LIMIT_REQUESTS", 30),
			RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			RateLimitBlockTime: getEnvDuration("RATE_LIMIT_BLOCK_TIME", 5*time.Minute),
		},
		SSE: SSEConfig{
			Enabled:           getEnvBool("SSE_ENABLED", true),
			HeartbeatInterval: getEnvDuration("SSE_HEARTBEAT_INTERVAL", 15*time.Second),
			MaxConnections:    getEnvInt("SSE_MAX_CONNECTIONS", 1000),
			MessageBufferSize: getEnvInt("SSE_MESSAGE_BUFFER_SIZE", 16),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:        getEnv("KAFKA_TOPIC", "dashboard-events"),
			WriteTimeout: getEnvDuration("KAFKA_WRITE_TIMEOUT", 5*time.Second),
		},
		Dashboard: DashboardConfig{
			DataSource:        strings.ToLower(getEnv("DASHBOARD_DATA_SOURCE", DataSourceSynthetic)),
			DefaultRange:      getEnv("DASHBOARD_DEFAULT_RANGE", string(domain.DefaultRange)),
			SLATarget:         getEnvFloat("DASHBOARD_SLA_TARGET", domain.DefaultSLATarget),
			Seed:              getEnvInt64("DASHBOARD_SEED", 0),
			GenerationTimeout: getEnvDuration("DASHBOARD_GENERATION_TIMEOUT", 10*time.Second),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Dashboard.DataSource {
	case DataSourceSynthetic:
	case DataSourcePostgres:
		if strings.TrimSpace(c.Database.Host) == "" {
			return fmt.Errorf("database host is required")
		}
		if strings.TrimSpace(c.Database.User) == "" {
			return fmt.Errorf("database user is required")
		}
		if strings.TrimSpace(c.Database.DBName) == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unknown dashboard data source %q (want %s or %s)",
			c.Dashboard.DataSource, DataSourceSynthetic, DataSourcePostgres)
	}

	if _, err := c.DefaultWindow(); err != nil {
		return fmt.Errorf("invalid default range: %w", err)
	}

	if c.Dashboard.SLATarget <= 0 || c.Dashboard.SLATarget > domain.MaxPercentage {
		return fmt.Errorf("SLA target must be in (0, 100], got %v", c.Dashboard.SLATarget)
	}

	if c.Security.RateLimitEnabled && c.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("rate limit requests must be positive when rate limiting is enabled")
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}

	if c.Security.JWTSecret == "" || c.Security.JWTSecret == defaultJWTSecret {
		if c.IsProduction() && c.Security.AuthEnabled {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}

	return nil
}

// DefaultWindow returns the window served before any refresh
func (c *Config) DefaultWindow() (domain.WindowSpec, error) {
	return domain.ParseWindowSpec(c.Dashboard.DefaultRange, "", "")
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
		int(c.Database.ConnectTimeout.Seconds()),
	)
}

// GetRedisAddr returns the Redis host:port address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
