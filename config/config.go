package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"tulip-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"120"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"120"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	ShutdownTimeoutSeconds        int      `env:"HTTP_SERVER_SHUTDOWN_TIMEOUT_SECONDS" env-default:"15"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"tulip"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10m"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	// Run migrations on serve
	DatabaseMigrateOnStart bool `env:"DB_MIGRATE_ON_START" env-default:"true"`

	RedisHost       string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort       int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB         int    `env:"REDIS_DB" env-default:"0"`
	RedisLockPrefix string `env:"REDIS_LOCK_PREFIX" env-default:"tulip:lock:"`

	// Auth Enabled - when false, X-User-ID and X-User-Role headers identify the actor.
	// Only turn it off for local development.
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"true"`
	// Auth Issuer URL
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`

	// Kafka Producer
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaImportTopic  string   `env:"KAFKA_IMPORT_TOPIC" env-default:"tulip.imports"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"10"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"50"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"-1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"none"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"grpc"`
	TracingInsecure bool   `env:"TRACING_INSECURE" env-default:"true"`

	// Import
	ImportBatchSize      int           `env:"IMPORT_BATCH_SIZE" env-default:"500"`
	ImportBytesPerRow    int           `env:"IMPORT_BYTES_PER_ROW" env-default:"200"`
	ImportEncoding       string        `env:"IMPORT_ENCODING" env-default:"iso-8859-1"`
	ImportLockTTL        time.Duration `env:"IMPORT_LOCK_TTL" env-default:"15m"`
	ImportMaxUploadBytes int64         `env:"IMPORT_MAX_UPLOAD_BYTES" env-default:"209715200"` // 200MB
	// Strategy per entity type: replace_all | reconcile_and_log
	ImportStrategyParticulier string `env:"IMPORT_STRATEGY_RELATIES_PARTICULIER" env-default:"replace_all"`
	ImportStrategyZakelijk    string `env:"IMPORT_STRATEGY_RELATIES_ZAKELIJK" env-default:"reconcile_and_log"`
	ImportStrategyPolissen    string `env:"IMPORT_STRATEGY_POLISSEN" env-default:"replace_all"`

	// Stale session sweeper
	SweeperEnabled    bool          `env:"SWEEPER_ENABLED" env-default:"true"`
	SweeperSchedule   string        `env:"SWEEPER_SCHEDULE" env-default:"@every 10m"`
	SweeperStaleAfter time.Duration `env:"SWEEPER_STALE_AFTER" env-default:"2h"`

	// Remote client (tulip import)
	ClientServerURL      string        `env:"TULIP_SERVER_URL" env-default:"http://localhost:3000"`
	ClientUserID         string        `env:"TULIP_USER_ID" env-default:""`
	ClientUserRole       string        `env:"TULIP_USER_ROLE" env-default:"uploader"`
	ClientBearerToken    string        `env:"TULIP_BEARER_TOKEN" env-default:""`
	ClientTimeout        time.Duration `env:"TULIP_CLIENT_TIMEOUT" env-default:"2m"`
	ClientMaxResponseMiB int           `env:"TULIP_CLIENT_MAX_RESPONSE_MIB" env-default:"10"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return &cfg, nil
}

// CheckAuth reports token authentication that is enabled but not configured.
func (c *Config) CheckAuth() error {
	if !c.AuthEnabled {
		return nil
	}
	var missing []string
	if c.AuthIssuerURL == "" {
		missing = append(missing, "AUTH_ISSUER_URL")
	}
	if c.AuthClientID == "" {
		missing = append(missing, "AUTH_CLIENT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("AUTH_ENABLED needs %s, or set AUTH_ENABLED=false for header authentication", strings.Join(missing, " and "))
	}
	return nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}

// ImportStrategies parses the per entity strategy settings.
func (c *Config) ImportStrategies() (importer.Strategies, error) {
	raw := map[models.EntityType]string{
		models.EntityParticulier: c.ImportStrategyParticulier,
		models.EntityZakelijk:    c.ImportStrategyZakelijk,
		models.EntityPolissen:    c.ImportStrategyPolissen,
	}

	strategies := importer.DefaultStrategies()
	for entity, value := range raw {
		if value == "" {
			continue
		}
		strategy, err := models.ParseImportStrategy(value)
		if err != nil {
			return nil, fmt.Errorf("IMPORT_STRATEGY_%s: %w", strings.ToUpper(entity.String()), err)
		}
		strategies[entity] = strategy
	}
	return strategies, nil
}

func (c *Config) ImporterConfig() (importer.Config, error) {
	strategies, err := c.ImportStrategies()
	if err != nil {
		return importer.Config{}, err
	}
	return importer.Config{
		BatchSize:   c.ImportBatchSize,
		BytesPerRow: c.ImportBytesPerRow,
		Encoding:    c.ImportEncoding,
		Strategies:  strategies,
	}, nil
}
