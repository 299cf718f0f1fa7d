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
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "cargoloop", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSimConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetSimConfig()
	assert.Equal(t, "./scenario.yaml", cfg.Scenario)
	assert.Equal(t, 50*time.Millisecond, cfg.TickRate)
	assert.Equal(t, time.Duration(0), cfg.Duration)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.True(t, cfg.AutoDrive)
	assert.Equal(t, 8.0, cfg.CruiseSpeed)
	assert.Equal(t, time.Second, cfg.StateInterval)
}

func TestGetSimConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"sim": {
			"scenario": "/srv/loop.yaml",
			"tickRate": "20ms",
			"duration": "2m",
			"seed": 42,
			"autoDrive": false,
			"cruiseSpeed": 12.5
		}
	}`)))

	cfg := GetSimConfig()
	assert.Equal(t, "/srv/loop.yaml", cfg.Scenario)
	assert.Equal(t, 20*time.Millisecond, cfg.TickRate)
	assert.Equal(t, 2*time.Minute, cfg.Duration)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.False(t, cfg.AutoDrive)
	assert.Equal(t, 12.5, cfg.CruiseSpeed)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "postgres", cfg.Postgres.Username)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=cargoloop sslmode=disable",
		cfg.Postgres.DSN())
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/run.db" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/run.db", sc.SQLite.DumpPath)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "host": "metrics", "bucket": "stops" }
	}`)))

	cfg := GetInfluxConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http://metrics:8086", cfg.URL())
	assert.Equal(t, "cargoloop", cfg.Org)
	assert.Equal(t, "stops", cfg.Bucket)
}

func TestGetStatusAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"status": { "address": ":9090", "allowedOrigins": ["http://localhost:3000"] },
		"graylog": { "enabled": true }
	}`)))

	st := GetStatusConfig()
	assert.True(t, st.Enabled)
	assert.Equal(t, ":9090", st.Address)
	assert.Equal(t, []string{"http://localhost:3000"}, st.AllowedOrigins)

	gl := GetGraylogConfig()
	assert.True(t, gl.Enabled)
	assert.Equal(t, "localhost:12201", gl.Address)
}

func TestGetMonitorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"monitor": { "interval": "5s", "statusFile": "" }
	}`)))

	cfg := GetMonitorConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Empty(t, cfg.StatusFile)
}
