package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"scan": { "maxOffsetsPerScan": 512, "interval": "100ms" }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	sc := GetScanConfig()
	assert.Equal(t, 512, sc.MaxOffsetsPerScan)
	assert.Equal(t, 100*time.Millisecond, sc.Interval)
	// untouched keys keep their defaults
	assert.Equal(t, 64, sc.RechecksPerTick)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./lootsense_logs", viper.GetString("logsDir"))

	sc := GetScanConfig()
	assert.Equal(t, 4096, sc.MaxOffsetsPerScan)
	assert.Equal(t, 64, sc.RechecksPerTick)
	assert.Equal(t, 250*time.Millisecond, sc.Interval)
	assert.Equal(t, 2.0, sc.MovementThreshold)
	assert.Equal(t, 4.0, sc.RangeGrace)
	assert.Equal(t, 30*time.Second, sc.MarkerTimeout)

	rc := GetRankConfig()
	assert.Equal(t, "lootSense", rc.PerkID)
	assert.Equal(t, []float64{0, 10, 15, 20, 25, 30}, rc.Radius)
	assert.Equal(t, -10.0, rc.BonusMin)
	assert.Equal(t, 30.0, rc.BonusMax)

	assert.Equal(t, "sqlite", GetStorageConfig().Type)
	assert.Equal(t, time.Second, GetMonitorConfig().Interval)
	assert.False(t, GetInfluxConfig().Enabled)
	assert.False(t, GetGraylogConfig().Enabled)
	assert.Equal(t, "localhost:12201", GetGraylogConfig().Address)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still in place for callers that continue
	assert.Equal(t, 4096, GetScanConfig().MaxOffsetsPerScan)
}

func TestGetRankConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"rank": { "perkId": "treasureHunter", "radius": [5, 8, 12], "bonusMax": 10 }
	}`)))

	rc := GetRankConfig()
	assert.Equal(t, "treasureHunter", rc.PerkID)
	assert.Equal(t, []float64{5, 8, 12}, rc.Radius)
	assert.Equal(t, 10.0, rc.BonusMax)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "lootsense", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetInfluxConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "url": "http://10.0.0.5:8086", "bucket": "perf" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "http://10.0.0.5:8086", ic.URL)
	assert.Equal(t, "perf", ic.Bucket)
	assert.Equal(t, "lootsense", ic.Org)
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetClassifyConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	assert.Empty(t, GetClassifyConfig().RulesPath)

	require.NoError(t, Load(writeConfig(t, `{"classify": {"rulesPath": "rules/containers.yaml"}}`)))
	assert.Equal(t, "rules/containers.yaml", GetClassifyConfig().RulesPath)
}
