package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/procsift/procsift/internal/models"
)

type Config struct {
	Source     SourceConfig                `mapstructure:"source"`
	Database   DatabaseConfig              `mapstructure:"database"`
	Sink       SinkConfig                  `mapstructure:"sink"`
	Pacing     PacingConfig                `mapstructure:"pacing"`
	Ingest     IngestConfig                `mapstructure:"ingest"`
	Dispatch   DispatchConfig              `mapstructure:"dispatch"`
	Validation ValidationConfig            `mapstructure:"validation"`
	Region     RegionConfig                `mapstructure:"region"`
	Customers  []models.RecognizedCustomer `mapstructure:"customers"`
	Audit      AuditConfig                 `mapstructure:"audit"`
	Metrics    MetricsConfig               `mapstructure:"metrics"`
	Logging    LoggingConfig               `mapstructure:"logging"`
}

type SourceConfig struct {
	// Name identifies the harvester towards the reporting API.
	Name     string `mapstructure:"name"`
	BaseURL  string `mapstructure:"base_url"`
	PageSize int    `mapstructure:"page_size"`
	// EtpName is the human-readable trading platform label stamped into
	// outgoing orders. Defaults to Name.
	EtpName string `mapstructure:"etp_name"`
}

type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // "postgres" or "memory"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds a pgx/migrate compatible connection string.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type SinkConfig struct {
	Type string         `mapstructure:"type"` // "http" or "nats"
	HTTP HTTPSinkConfig `mapstructure:"http"`
	NATS NATSSinkConfig `mapstructure:"nats"`
}

type HTTPSinkConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NATSSinkConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Name    string `mapstructure:"name"`
}

type PacingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// Every SlowEvery-th pause uses the slow range instead.
	SlowEvery    int           `mapstructure:"slow_every"`
	SlowMinDelay time.Duration `mapstructure:"slow_min_delay"`
	SlowMaxDelay time.Duration `mapstructure:"slow_max_delay"`
}

type IngestConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// EmptyPageThreshold terminates pagination after this many consecutive
	// pages that contributed zero new orders.
	EmptyPageThreshold int `mapstructure:"empty_page_threshold"`
	// MaxPages bounds pagination when the source reports no page count.
	MaxPages int `mapstructure:"max_pages"`
}

type DispatchConfig struct {
	// SendEnabled false replaces the sink with a discard sink (dry run).
	SendEnabled bool `mapstructure:"send_enabled"`
	// UpdateAfterSend false leaves orders unsent in the store after a
	// successful send, so a later run re-dispatches them.
	UpdateAfterSend bool `mapstructure:"update_after_send"`
}

type ValidationConfig struct {
	AllowedStatuses []string `mapstructure:"allowed_statuses"`
	SkipNumbers     []string `mapstructure:"skip_numbers"`
	DateLayouts     []string `mapstructure:"date_layouts"`
	GraceHours      int      `mapstructure:"grace_hours"`
}

type RegionConfig struct {
	MatchesFile   string `mapstructure:"matches_file"`
	DefaultRegion string `mapstructure:"default_region"`
}

type AuditConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("source.name", "procsift")
	v.SetDefault("source.page_size", 200)
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "procsift")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("sink.type", "http")
	v.SetDefault("sink.http.timeout", "30s")
	v.SetDefault("sink.nats.url", "nats://localhost:4222")
	v.SetDefault("sink.nats.subject", "procsift.orders.sent")
	v.SetDefault("sink.nats.name", "procsift")
	v.SetDefault("pacing.enabled", true)
	v.SetDefault("pacing.min_delay", "2s")
	v.SetDefault("pacing.max_delay", "4s")
	v.SetDefault("pacing.slow_every", 10)
	v.SetDefault("pacing.slow_min_delay", "7s")
	v.SetDefault("pacing.slow_max_delay", "10s")
	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.empty_page_threshold", 3)
	v.SetDefault("ingest.max_pages", 50)
	v.SetDefault("dispatch.send_enabled", true)
	v.SetDefault("dispatch.update_after_send", true)
	v.SetDefault("validation.allowed_statuses", []string{"tenders_open_for_proposals"})
	v.SetDefault("validation.date_layouts", []string{"2006-01-02", "02.01.2006"})
	v.SetDefault("validation.grace_hours", 24)
	v.SetDefault("region.default_region", "Москва")
	v.SetDefault("audit.path", "last_result.json")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9181")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/procsift")
	}

	// Environment variables override (PROCSIFT_SINK_HTTP_URL, etc.)
	v.SetEnvPrefix("PROCSIFT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Source.EtpName == "" {
		cfg.Source.EtpName = cfg.Source.Name
	}

	return &cfg, nil
}
