package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohammad-safakhou/sparkadvisor/internal/budget"
	"github.com/mohammad-safakhou/sparkadvisor/internal/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override (SPARKADVISOR_KUSTO_DATABASE, ...).
const EnvPrefix = "SPARKADVISOR"

// Config holds all configuration for the advisor
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Kusto     KustoConfig     `mapstructure:"kusto"`
	Search    SearchConfig    `mapstructure:"search"`
	Advisor   AdvisorConfig   `mapstructure:"advisor"`
	Budget    budget.Config   `mapstructure:"budget"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       logging.Config  `mapstructure:"log"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TelemetryConfig contains tracing settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && strings.TrimSpace(t.ServiceName) == "" {
		return fmt.Errorf("telemetry.service_name required when telemetry is enabled")
	}
	return nil
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host      string        `mapstructure:"host"`
	Port      string        `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether any connection details were supplied.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.default_timeout", 60*time.Second)

	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 3*time.Minute)
	v.SetDefault("server.migrations_dir", "file://migrations")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("llm.type", LLMTypeAzure)
	v.SetDefault("llm.api_version", "2024-08-01-preview")
	v.SetDefault("llm.deployment", "gpt-4o")
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.judge.temperature", 0.3)
	v.SetDefault("llm.judge.max_tokens", 4000)
	v.SetDefault("llm.recommend.temperature", 0.7)
	v.SetDefault("llm.recommend.max_tokens", 2000)
	v.SetDefault("llm.analysis.temperature", 0.3)
	v.SetDefault("llm.analysis.max_tokens", 3000)

	v.SetDefault("kusto.timeout", 60*time.Second)
	v.SetDefault("kusto.max_retries", 2)

	v.SetDefault("search.backend", SearchBackendBleve)
	v.SetDefault("search.api_version", "2023-11-01")
	v.SetDefault("search.index_path", "data/docs.bleve")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("telemetry.service_name", "sparkadvisor")
	v.SetDefault("storage.redis.key_prefix", "sparkadvisor:")
}

// Load reads configuration from path (or the default search paths when empty)
// and SPARKADVISOR_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// no file on the search path is fine: defaults + env still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.LLM = cfg.LLM.Normalize()
	cfg.Kusto = cfg.Kusto.Normalize()
	cfg.Search = cfg.Search.Normalize()
	cfg.Advisor = cfg.Advisor.Normalize()
	cfg.Budget = cfg.Budget.Normalize()
	cfg.Log = cfg.Log.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig is Load for command entrypoints: any error is fatal.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}

// Validate checks the sections every command depends on. Service sections
// (kusto, llm, search) are validated by the constructors that need them.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Advisor.Validate(); err != nil {
		return err
	}
	if c.Advisor.SessionStore == SessionStoreRedis {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	if c.Storage.Postgres.Enabled() {
		if err := c.Storage.Postgres.Validate(); err != nil {
			return err
		}
	}
	return nil
}
