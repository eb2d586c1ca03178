package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Probe     ProbeConfig     `mapstructure:"probe"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// ScanTimeout bounds a synchronous POST /v1/scans, in seconds.
	ScanTimeout int `mapstructure:"scan_timeout"`
	RateLimit   int `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Dir, when set, also appends logs to <Dir>/activity.log.
	Dir string `mapstructure:"dir"`
}

// ProbeConfig holds the scan defaults used by the CLI, the worker and the API.
type ProbeConfig struct {
	InputDir            string  `mapstructure:"input_dir"`
	OutputDir           string  `mapstructure:"output_dir"`
	TargetLon           float64 `mapstructure:"target_lon"`
	TargetLat           float64 `mapstructure:"target_lat"`
	ToleranceKm         float64 `mapstructure:"tolerance_km"`
	MatchOnly           bool    `mapstructure:"match_only"`
	Export              string  `mapstructure:"export"`
	Workflow            string  `mapstructure:"workflow"`
	BackgroundThreshold float64 `mapstructure:"background_threshold"`
}

// envAliases binds the bare variable names used by earlier deployments of
// the tool alongside the prefixed ones.
var envAliases = map[string]string{
	"probe.input_dir":    "TIF_DIRPATH",
	"probe.output_dir":   "OUTPUT_DIR",
	"probe.target_lon":   "TARGET_SPOT_LON",
	"probe.target_lat":   "TARGET_SPOT_LAT",
	"probe.tolerance_km": "VALIDATE_DIST_KM",
	"probe.match_only":   "FIND_MATCH_ONLY",
	"log.dir":            "LOG_DIRPATH",
}

var boolKeys = []string{"telemetry.enabled", "probe.match_only"}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.scan_timeout", 300)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "probe")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "tifprobe")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "probe-validation")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.dir", "")
	v.SetDefault("probe.input_dir", "./data")
	v.SetDefault("probe.output_dir", "./outputs")
	v.SetDefault("probe.target_lon", 0.0)
	v.SetDefault("probe.target_lat", 0.0)
	v.SetDefault("probe.tolerance_km", 1.0)
	v.SetDefault("probe.match_only", false)
	v.SetDefault("probe.export", "excel")
	v.SetDefault("probe.workflow", "tif")
	v.SetDefault("probe.background_threshold", 100.0)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TIFPROBE_DATABASE_HOST → database.host
	v.SetEnvPrefix("TIFPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := "TIFPROBE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// viper only understands strconv.ParseBool spellings
	for _, key := range boolKeys {
		b, err := ParseBool(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		v.Set(key, b)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseBool accepts y, yes, t, true, on, 1 and n, no, f, false, off, 0 in
// any case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid truth value %q", s)
}

// problems collects validation failures.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) port(key string, v int) {
	if v <= 0 || v > 65535 {
		p.addf("%s must be 1-65535, got %d", key, v)
	}
}

func (p *problems) required(key, v string) {
	if v == "" {
		p.addf("%s is required", key)
	}
}

func (p *problems) positive(key string, v int) {
	if v <= 0 {
		p.addf("%s must be positive, got %d", key, v)
	}
}

func (p *problems) within(key string, v, lo, hi float64) {
	if math.IsNaN(v) || v < lo || v > hi {
		p.addf("%s must be in [%v, %v], got %v", key, lo, hi, v)
	}
}

// Validate checks that required fields are present and values are in range.
func (c *Config) Validate() error {
	var errs problems

	errs.port("server.port", c.Server.Port)
	errs.positive("server.read_timeout", c.Server.ReadTimeout)
	errs.positive("server.write_timeout", c.Server.WriteTimeout)
	errs.positive("server.scan_timeout", c.Server.ScanTimeout)

	errs.required("database.host", c.Database.Host)
	errs.port("database.port", c.Database.Port)
	errs.required("database.user", c.Database.User)
	errs.required("database.dbname", c.Database.DBName)
	errs.required("nats.url", c.NATS.URL)
	errs.required("valkey.addr", c.Valkey.Addr)
	errs.required("temporal.task_queue", c.Temporal.TaskQueue)

	p := c.Probe
	errs.within("probe.target_lon", p.TargetLon, -180, 180)
	errs.within("probe.target_lat", p.TargetLat, -90, 90)
	errs.within("probe.tolerance_km", p.ToleranceKm, 0, math.MaxFloat64)
	switch p.Export {
	case "excel", "png", "none":
	default:
		errs.addf("probe.export must be excel, png or none, got %q", p.Export)
	}
	errs.required("probe.workflow", p.Workflow)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
