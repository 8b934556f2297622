package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

// devJWTSecret 仅在非生产环境且未配置 JWT_SECRET 时使用
const devJWTSecret = "fluentpro-dev-secret-change-me"

type Config struct {
	// 服务配置
	ServerPort     string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost     string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName    string `env:"SERVICE_NAME" envDefault:"fluentpro"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"fluentpro"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`
	// 只读副本 DSN，逗号分隔，为空时读写都走主库
	PostgreSQLReplicas []string `env:"POSTGRESQL_REPLICAS" envSeparator:","`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"fpro"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 生产环境必填
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 密码哈希
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// OpenTelemetry
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled             bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitOnboardingPerMinute int  `env:"RATE_LIMIT_ONBOARDING_PER_MINUTE" envDefault:"60"`

	// 允许跨域的前端地址，逗号分隔，为空时允许任意来源但不带凭证
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// 角色匹配 / 课程推荐服务
	CollaboratorProvider    string        `env:"COLLABORATOR_PROVIDER" envDefault:"mock"` // mock, http
	RoleMatcherURL          string        `env:"ROLE_MATCHER_URL" envDefault:"http://localhost:8000/api/v1"`
	RoleMatcherToken        string        `env:"ROLE_MATCHER_TOKEN"`
	CourseRecommenderURL    string        `env:"COURSE_RECOMMENDER_URL" envDefault:"http://localhost:8000/api/v1"`
	CourseRecommenderToken  string        `env:"COURSE_RECOMMENDER_TOKEN"`
	CollaboratorBreakerMax  int           `env:"COLLABORATOR_BREAKER_MAX_FAILURES" envDefault:"5"`
	CollaboratorBreakerWait time.Duration `env:"COLLABORATOR_BREAKER_RESET" envDefault:"30s"`
	MockCatalogPath         string        `env:"MOCK_CATALOG_PATH"` // 为空时使用内置目录
	MockLatency             time.Duration `env:"MOCK_LATENCY" envDefault:"0s"`

	// 引导流程
	OnboardingCallTimeout  time.Duration `env:"ONBOARDING_CALL_TIMEOUT" envDefault:"20s"`
	OnboardingLockTTL      time.Duration `env:"ONBOARDING_LOCK_TTL" envDefault:"30s"`
	OnboardingSessionTTL   time.Duration `env:"ONBOARDING_SESSION_TTL" envDefault:"24h"`
	RecommendationPollWait time.Duration `env:"RECOMMENDATION_POLL_DELAY" envDefault:"10m"`
	RecommendationPollMax  int           `env:"RECOMMENDATION_POLL_MAX" envDefault:"288"` // 10 分钟一次，约 48 小时
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		if Cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required")
		}
		log.Printf("WARN: JWT_SECRET is not set, using development secret")
		Cfg.JWTSecret = devJWTSecret
	}

	switch Cfg.CollaboratorProvider {
	case "mock", "http":
	default:
		log.Fatalf("COLLABORATOR_PROVIDER must be mock or http, got %q", Cfg.CollaboratorProvider)
	}

	if Cfg.IsProduction() && Cfg.CollaboratorProvider == "mock" {
		log.Printf("WARN: COLLABORATOR_PROVIDER=mock in production, role matching uses the built-in catalog")
	}

	if Cfg.OnboardingLockTTL < Cfg.OnboardingCallTimeout {
		log.Printf("WARN: ONBOARDING_LOCK_TTL (%s) is shorter than ONBOARDING_CALL_TIMEOUT (%s)",
			Cfg.OnboardingLockTTL, Cfg.OnboardingCallTimeout)
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
