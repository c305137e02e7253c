package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/router-for-me/FRPPanel/internal/settings"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvSnapshotPath   = "PANEL_SNAPSHOT_PATH"
	EnvJWTSecret      = "JWT_SECRET"
	EnvJWTExpiry      = "JWT_EXPIRY"
	EnvAdminUsername  = "ADMIN_USERNAME"
	EnvAdminPassword  = "ADMIN_PASSWORD"
	EnvServerAddr     = "SERVER_ADDR"
	EnvUserPortMin    = "USER_PORT_MIN"
	EnvUserPortMax    = "USER_PORT_MAX"
	EnvDBConnection   = "DB_CONNECTION"
	EnvListenPort     = "PORT"
	EnvFRPSDashboard  = "FRPS_DASHBOARD_URL"
	EnvFRPSDashUser   = "FRPS_DASHBOARD_USER"
	EnvFRPSDashPass   = "FRPS_DASHBOARD_PASSWORD"
	EnvRateLimitRedis = "RATE_LIMIT_REDIS_ADDR"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageDatabase = "database"
)

const (
	defaultListenPort      = 3000
	defaultJWTExpiry       = 7 * 24 * time.Hour
	defaultSnapshotPath    = "./data/panel.json"
	defaultSaveInterval    = 5 * time.Second
	defaultAdminUsername   = "admin"
	defaultAdminPassword   = "admin123456"
	defaultFRPSBindPort    = 7000
	defaultCollectInterval = time.Minute
	defaultRetention       = 30 * 24 * time.Hour
	defaultRateLimit       = 60
	defaultRateWindow      = time.Minute
	defaultRedisPrefix     = "frp-panel:rl"
)

// ErrMissingDatabaseDSN indicates the database backend was selected without a DSN.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `storage.dsn` in config file or DB_CONNECTION)")

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Config is the full panel configuration.
type Config struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	PublicURL string          `yaml:"public_url"` // Base URL used in emailed links; derived from the request when empty.
	Logging   LoggingConfig   `yaml:"logging"`
	JWT       JWTConfig       `yaml:"jwt"`
	Storage   StorageConfig   `yaml:"storage"`
	Admin     AdminConfig     `yaml:"admin"`
	Ports     PortRange       `yaml:"ports"`
	FRPS      FRPSConfig      `yaml:"frps"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// LoggingConfig controls logrus output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // logrus level name.
	Format string `yaml:"format"` // text or json.
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// StorageConfig selects where record-store snapshots live.
type StorageConfig struct {
	Backend       string        `yaml:"backend"`        // file or database.
	Path          string        `yaml:"path"`           // Snapshot file for the file backend.
	DSN           string        `yaml:"dsn"`            // Connection string for the database backend.
	SaveInterval  time.Duration `yaml:"save_interval"`  // Periodic save interval.
	WriteThrough  bool          `yaml:"write_through"`  // Save right after each mutation.
	StrictQueries bool          `yaml:"strict_queries"` // Fail on unsupported query predicates.
}

// AdminConfig holds the bootstrap admin account.
type AdminConfig struct {
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	PortLimit      int    `yaml:"port_limit"`      // 0 means the size of the port range.
	BandwidthLimit int64  `yaml:"bandwidth_limit"` // 0 means unlimited.
}

// PortRange bounds the external ports users may claim.
type PortRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Size returns the number of ports in the range.
func (r PortRange) Size() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

// Contains reports whether port lies within the range.
func (r PortRange) Contains(port int) bool {
	return port >= r.Min && port <= r.Max
}

// FRPSConfig describes the frps server the panel configures clients for.
type FRPSConfig struct {
	ServerAddr        string        `yaml:"server_addr"`
	BindPort          int           `yaml:"bind_port"`
	Token             string        `yaml:"token"`
	DashboardURL      string        `yaml:"dashboard_url"` // Empty disables traffic collection.
	DashboardUser     string        `yaml:"dashboard_user"`
	DashboardPassword string        `yaml:"dashboard_password"`
	CollectInterval   time.Duration `yaml:"collect_interval"`
	Retention         time.Duration `yaml:"retention"`
}

// RateLimitConfig configures the per-IP API limiter.
type RateLimitConfig struct {
	Requests      int           `yaml:"requests"` // 0 disables limiting.
	Window        time.Duration `yaml:"window"`
	RedisAddr     string        `yaml:"redis_addr"` // Empty keeps counters in memory.
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:    defaultListenPort,
		Logging: LoggingConfig{Level: "info", Format: "text"},
		JWT:     JWTConfig{Expiry: defaultJWTExpiry},
		Storage: StorageConfig{
			Backend:      StorageFile,
			Path:         defaultSnapshotPath,
			SaveInterval: defaultSaveInterval,
		},
		Admin: AdminConfig{Username: defaultAdminUsername, Password: defaultAdminPassword},
		Ports: PortRange{Min: settings.DefaultPortMin, Max: settings.DefaultPortMax},
		FRPS: FRPSConfig{
			BindPort:        defaultFRPSBindPort,
			CollectInterval: defaultCollectInterval,
			Retention:       defaultRetention,
		},
		RateLimit: RateLimitConfig{
			Requests:    defaultRateLimit,
			Window:      defaultRateWindow,
			RedisPrefix: defaultRedisPrefix,
		},
	}
}

// Load reads the YAML config at configPath over the defaults and applies env overrides.
// A missing file is not an error.
func Load(configPath string) (Config, error) {
	cfg := Default()
	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}
	applyEnv(&cfg)
	cfg.normalize()
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := envString(EnvSnapshotPath); v != "" {
		cfg.Storage.Path = v
	}
	if v := envString(EnvDBConnection); v != "" {
		cfg.Storage.DSN = v
	}
	if v := envString(EnvJWTSecret); v != "" {
		cfg.JWT.Secret = v
	}
	if v := envString(EnvJWTExpiry); v != "" {
		if expiry, errParse := time.ParseDuration(v); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if v := envString(EnvAdminUsername); v != "" {
		cfg.Admin.Username = v
	}
	if v := envString(EnvAdminPassword); v != "" {
		cfg.Admin.Password = v
	}
	if v := envString(EnvServerAddr); v != "" {
		cfg.FRPS.ServerAddr = v
	}
	if v, ok := envInt(EnvUserPortMin); ok {
		cfg.Ports.Min = v
	}
	if v, ok := envInt(EnvUserPortMax); ok {
		cfg.Ports.Max = v
	}
	if v, ok := envInt(EnvListenPort); ok {
		cfg.Port = v
	}
	if v := envString(EnvFRPSDashboard); v != "" {
		cfg.FRPS.DashboardURL = v
	}
	if v := envString(EnvFRPSDashUser); v != "" {
		cfg.FRPS.DashboardUser = v
	}
	if v := envString(EnvFRPSDashPass); v != "" {
		cfg.FRPS.DashboardPassword = v
	}
	if v := envString(EnvRateLimitRedis); v != "" {
		cfg.RateLimit.RedisAddr = v
	}
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFile
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = defaultSnapshotPath
	}
	if c.Storage.SaveInterval <= 0 {
		c.Storage.SaveInterval = defaultSaveInterval
	}
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = defaultJWTExpiry
	}
	if c.Port <= 0 {
		c.Port = defaultListenPort
	}
	if c.FRPS.BindPort <= 0 {
		c.FRPS.BindPort = defaultFRPSBindPort
	}
	if c.FRPS.CollectInterval <= 0 {
		c.FRPS.CollectInterval = defaultCollectInterval
	}
	if c.FRPS.Retention <= 0 {
		c.FRPS.Retention = defaultRetention
	}
	if c.RateLimit.Requests < 0 {
		c.RateLimit.Requests = 0
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = defaultRateWindow
	}
	if strings.TrimSpace(c.RateLimit.RedisPrefix) == "" {
		c.RateLimit.RedisPrefix = defaultRedisPrefix
	}
	c.PublicURL = strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")
}

// Validate reports configuration errors that would prevent startup.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageFile:
	case StorageDatabase:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return ErrMissingDatabaseDSN
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	if c.Ports.Min <= 0 || c.Ports.Max > 65535 || c.Ports.Min > c.Ports.Max {
		return fmt.Errorf("invalid port range %d-%d", c.Ports.Min, c.Ports.Max)
	}
	if strings.TrimSpace(c.Admin.Username) == "" || c.Admin.Password == "" {
		return fmt.Errorf("admin username and password are required")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string) (int, bool) {
	raw := envString(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
