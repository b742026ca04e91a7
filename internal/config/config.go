package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "lootsense.cfg.json"

// ScanConfig holds scanner, repository and controller tuning.
type ScanConfig struct {
	MaxOffsetsPerScan int           `json:"maxOffsetsPerScan" mapstructure:"maxOffsetsPerScan"`
	RechecksPerTick   int           `json:"rechecksPerTick" mapstructure:"rechecksPerTick"`
	Interval          time.Duration `json:"interval" mapstructure:"interval"`
	MovementThreshold float64       `json:"movementThreshold" mapstructure:"movementThreshold"`
	RangeGrace        float64       `json:"rangeGrace" mapstructure:"rangeGrace"`
	MarkerTimeout     time.Duration `json:"markerTimeout" mapstructure:"markerTimeout"`
}

// RankConfig maps perk rank to detection radius.
type RankConfig struct {
	PerkID   string    `json:"perkId" mapstructure:"perkId"`
	Radius   []float64 `json:"radius" mapstructure:"radius"`
	BonusMin float64   `json:"bonusMin" mapstructure:"bonusMin"`
	BonusMax float64   `json:"bonusMax" mapstructure:"bonusMax"`
}

// StorageConfig selects the preference store backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// SQLiteConfig holds sqlite preference store settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// MonitorConfig holds profiler settings.
type MonitorConfig struct {
	Interval   time.Duration `json:"interval" mapstructure:"interval"`
	StatusFile string        `json:"statusFile" mapstructure:"statusFile"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds profiler sink settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	URL        string `json:"url" mapstructure:"url"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// GraylogConfig holds GELF output settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// ClassifyConfig points at an optional container rule catalog.
type ClassifyConfig struct {
	// RulesPath is a YAML catalog replacing the built-in one; empty keeps it.
	RulesPath string `json:"rulesPath" mapstructure:"rulesPath"`
}

// SetDefaults registers default values. Load calls it; tests that skip the
// file can call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./lootsense_logs")

	viper.SetDefault("scan.maxOffsetsPerScan", 4096)
	viper.SetDefault("scan.rechecksPerTick", 64)
	viper.SetDefault("scan.interval", "250ms")
	viper.SetDefault("scan.movementThreshold", 2.0)
	viper.SetDefault("scan.rangeGrace", 4.0)
	viper.SetDefault("scan.markerTimeout", "30s")

	viper.SetDefault("rank.perkId", "lootSense")
	viper.SetDefault("rank.radius", []float64{0, 10, 15, 20, 25, 30})
	viper.SetDefault("rank.bonusMin", -10.0)
	viper.SetDefault("rank.bonusMax", 30.0)

	viper.SetDefault("classify.rulesPath", "")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./lootsense_prefs.db")

	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "lootsense")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "lootsense")
	viper.SetDefault("influx.bucket", "lootsense_profile")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetScanConfig returns the scan tuning section.
func GetScanConfig() ScanConfig {
	return ScanConfig{
		MaxOffsetsPerScan: viper.GetInt("scan.maxOffsetsPerScan"),
		RechecksPerTick:   viper.GetInt("scan.rechecksPerTick"),
		Interval:          viper.GetDuration("scan.interval"),
		MovementThreshold: viper.GetFloat64("scan.movementThreshold"),
		RangeGrace:        viper.GetFloat64("scan.rangeGrace"),
		MarkerTimeout:     viper.GetDuration("scan.markerTimeout"),
	}
}

// GetRankConfig returns the rank to radius table and bonus limits.
func GetRankConfig() RankConfig {
	var radius []float64
	if err := viper.UnmarshalKey("rank.radius", &radius); err != nil || len(radius) == 0 {
		radius = []float64{0}
	}
	return RankConfig{
		PerkID:   viper.GetString("rank.perkId"),
		Radius:   radius,
		BonusMin: viper.GetFloat64("rank.bonusMin"),
		BonusMax: viper.GetFloat64("rank.bonusMax"),
	}
}

// GetStorageConfig returns the preference store section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetMonitorConfig returns the profiler section.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the influx profiler sink section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF output section.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetClassifyConfig returns the classifier section.
func GetClassifyConfig() ClassifyConfig {
	return ClassifyConfig{RulesPath: viper.GetString("classify.rulesPath")}
}
