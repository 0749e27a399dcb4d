// Package config loads the supervisor's runtime configuration: the five
// hazard tunables spec §6 fixes as compile-time constants in the
// original firmware, plus the backend selection this Go rewrite needs
// (Secondary Link transport, telemetry/archive/notify endpoints, SPIFFE
// socket). Grounded on the teacher's internal/config/config.go
// YAML-plus-environment-override idiom.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	NodeID    string          `yaml:"node_id"`
	Hazard    HazardConfig    `yaml:"hazard"`
	Secondary SecondaryConfig `yaml:"secondary"`
	Identity  IdentityConfig  `yaml:"identity"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Notify    NotifyConfig    `yaml:"notify"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// HazardConfig mirrors the five spec §6 tunables.
type HazardConfig struct {
	SampleIntervalMs     int     `yaml:"sample_interval_ms"`
	HeartbeatTimeoutMs   int     `yaml:"heartbeat_timeout_ms"`
	LoadThresholdKg      float64 `yaml:"load_threshold_kg"`
	SensorMismatchRatio  float64 `yaml:"sensor_mismatch_ratio"`
	DropRateThresholdKgS float64 `yaml:"drop_rate_threshold_kg_s"`
}

// SecondaryConfig selects and configures the Secondary Link backend.
type SecondaryConfig struct {
	Backend  string `yaml:"backend"` // "i2c" or "grpc"
	I2CBus   string `yaml:"i2c_bus"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// IdentityConfig configures the SPIFFE workload identity used to
// mutually authenticate the gRPC Secondary Link backend.
type IdentityConfig struct {
	SPIFFESocketPath string `yaml:"spiffe_socket_path"`
	TrustDomain      string `yaml:"trust_domain"`
}

type TelemetryConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
	MaxLen    int64  `yaml:"max_len"`
}

type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Project  string `yaml:"project"`
	Instance string `yaml:"instance"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

type NotifyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Project   string `yaml:"project"`
	Location  string `yaml:"location"`
	Queue     string `yaml:"queue"`
	TargetURL string `yaml:"target_url"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// SampleInterval returns the configured sample interval as a
// time.Duration, defaulting to the spec's 50ms if unset.
func (c HazardConfig) SampleInterval() time.Duration {
	if c.SampleIntervalMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.SampleIntervalMs) * time.Millisecond
}

// Load reads path as YAML, then applies .env and process environment
// overrides, then fills any still-zero field with its spec §6 default.
// A .env file in the working directory is loaded if present; a missing
// or unreadable .env file is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.NodeID = getEnv("SUPERVISOR_NODE_ID", c.NodeID)

	if v := getEnvInt("SAMPLE_INTERVAL_MS", 0); v > 0 {
		c.Hazard.SampleIntervalMs = v
	}
	if v := getEnvInt("HEARTBEAT_TIMEOUT_MS", 0); v > 0 {
		c.Hazard.HeartbeatTimeoutMs = v
	}
	if v := getEnvFloat("LOAD_THRESHOLD_KG", 0); v > 0 {
		c.Hazard.LoadThresholdKg = v
	}
	if v := getEnvFloat("SENSOR_MISMATCH_RATIO", 0); v > 0 {
		c.Hazard.SensorMismatchRatio = v
	}
	if v := getEnvFloat("DROP_RATE_THRESHOLD_KG_S", 0); v > 0 {
		c.Hazard.DropRateThresholdKgS = v
	}

	c.Secondary.Backend = getEnv("SECONDARY_BACKEND", c.Secondary.Backend)
	c.Secondary.I2CBus = getEnv("SECONDARY_I2C_BUS", c.Secondary.I2CBus)
	c.Secondary.GRPCAddr = getEnv("SECONDARY_GRPC_ADDR", c.Secondary.GRPCAddr)

	c.Identity.SPIFFESocketPath = getEnv("SPIFFE_SOCKET_PATH", c.Identity.SPIFFESocketPath)
	c.Identity.TrustDomain = getEnv("SPIFFE_TRUST_DOMAIN", c.Identity.TrustDomain)

	c.Telemetry.RedisAddr = getEnv("REDIS_ADDR", c.Telemetry.RedisAddr)
	c.Telemetry.RedisKey = getEnv("REDIS_KEY", c.Telemetry.RedisKey)

	c.Archive.Enabled = getEnvBool("ARCHIVE_ENABLED", c.Archive.Enabled)
	c.Archive.Project = getEnv("GCP_PROJECT_ID", c.Archive.Project)
	c.Archive.Instance = getEnv("SPANNER_INSTANCE_ID", c.Archive.Instance)
	c.Archive.Database = getEnv("SPANNER_DATABASE_ID", c.Archive.Database)

	c.Notify.Enabled = getEnvBool("NOTIFY_ENABLED", c.Notify.Enabled)
	if c.Notify.Project == "" {
		c.Notify.Project = c.Archive.Project
	}
	c.Notify.Location = getEnv("CLOUD_TASKS_LOCATION", c.Notify.Location)
	c.Notify.Queue = getEnv("CLOUD_TASKS_QUEUE", c.Notify.Queue)
	c.Notify.TargetURL = getEnv("OPS_NOTIFY_URL", c.Notify.TargetURL)

	c.Metrics.ListenAddr = getEnv("METRICS_LISTEN_ADDR", c.Metrics.ListenAddr)
}

func (c *Config) applyDefaults() {
	if c.NodeID == "" {
		c.NodeID = "suit-supervisor-0"
	}
	if c.Hazard.SampleIntervalMs == 0 {
		c.Hazard.SampleIntervalMs = 50
	}
	if c.Hazard.HeartbeatTimeoutMs == 0 {
		c.Hazard.HeartbeatTimeoutMs = 1000
	}
	if c.Hazard.LoadThresholdKg == 0 {
		c.Hazard.LoadThresholdKg = 50.0
	}
	if c.Hazard.SensorMismatchRatio == 0 {
		c.Hazard.SensorMismatchRatio = 0.20
	}
	if c.Hazard.DropRateThresholdKgS == 0 {
		c.Hazard.DropRateThresholdKgS = 10.0
	}
	if c.Secondary.Backend == "" {
		c.Secondary.Backend = "i2c"
	}
	if c.Telemetry.RedisKey == "" {
		c.Telemetry.RedisKey = "aegissuit:audit:envelopes"
	}
	if c.Telemetry.MaxLen == 0 {
		c.Telemetry.MaxLen = 10000
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "audit_events"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
