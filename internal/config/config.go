package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "cargoloop.cfg.json"

// SimConfig holds the fixed-tick loop settings.
type SimConfig struct {
	Scenario      string        `json:"scenario" mapstructure:"scenario"`
	TickRate      time.Duration `json:"tickRate" mapstructure:"tickRate"`
	Duration      time.Duration `json:"duration" mapstructure:"duration"` // 0 runs until interrupted
	Seed          int64         `json:"seed" mapstructure:"seed"`         // 0 picks one from the clock
	AutoDrive     bool          `json:"autoDrive" mapstructure:"autoDrive"`
	CruiseSpeed   float64       `json:"cruiseSpeed" mapstructure:"cruiseSpeed"`
	StateInterval time.Duration `json:"stateInterval" mapstructure:"stateInterval"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN renders the settings as a libpq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"` // memory, sqlite, postgres
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres DatabaseConfig `json:"-" mapstructure:"-"`
}

// InfluxConfig holds the InfluxDB metrics settings.
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// URL is the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// StatusConfig holds the status HTTP API settings.
type StatusConfig struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	Address        string   `json:"address" mapstructure:"address"`
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
}

// GraylogConfig holds the GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// MonitorConfig holds the periodic status sampling settings.
type MonitorConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	// StatusFile is rewritten with the latest sample, empty disables it.
	StatusFile string `json:"statusFile" mapstructure:"statusFile"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("sim.scenario", "./scenario.yaml")
	viper.SetDefault("sim.tickRate", "50ms")
	viper.SetDefault("sim.duration", "0s")
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.autoDrive", true)
	viper.SetDefault("sim.cruiseSpeed", 8.0)
	viper.SetDefault("sim.stateInterval", "1s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "cargoloop")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./recordings/cargoloop.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "cargoloop")
	viper.SetDefault("influx.bucket", "transfers")
	viper.SetDefault("influx.backupDir", "./logs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("status.enabled", true)
	viper.SetDefault("status.address", "127.0.0.1:8080")
	viper.SetDefault("status.allowedOrigins", []string{"*"})

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "./logs/status.json")

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

// GetSimConfig returns the simulation loop settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		Scenario:      viper.GetString("sim.scenario"),
		TickRate:      viper.GetDuration("sim.tickRate"),
		Duration:      viper.GetDuration("sim.duration"),
		Seed:          viper.GetInt64("sim.seed"),
		AutoDrive:     viper.GetBool("sim.autoDrive"),
		CruiseSpeed:   viper.GetFloat64("sim.cruiseSpeed"),
		StateInterval: viper.GetDuration("sim.stateInterval"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: DatabaseConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Protocol:  viper.GetString("influx.protocol"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

// GetStatusConfig returns the status API settings.
func GetStatusConfig() StatusConfig {
	return StatusConfig{
		Enabled:        viper.GetBool("status.enabled"),
		Address:        viper.GetString("status.address"),
		AllowedOrigins: viper.GetStringSlice("status.allowedOrigins"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status sampling settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
