package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config dir.
const FileName = "labeler.cfg.json"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address        string        `json:"address" mapstructure:"address"`
	MaxUploadBytes int64         `json:"maxUploadBytes" mapstructure:"maxUploadBytes"`
	ShutdownWait   time.Duration `json:"shutdownWait" mapstructure:"shutdownWait"`
}

// MapConfig holds the initial view of the map widget.
type MapConfig struct {
	CenterLat float64 `json:"centerLat" mapstructure:"centerLat"`
	CenterLng float64 `json:"centerLng" mapstructure:"centerLng"`
	Zoom      int     `json:"zoom" mapstructure:"zoom"`
	TileURL   string  `json:"tileUrl" mapstructure:"tileUrl"`
}

// KeysConfig holds the navigation shortcuts.
type KeysConfig struct {
	Next     string `json:"next" mapstructure:"next"`
	Previous string `json:"previous" mapstructure:"previous"`
}

// CSVConfig controls sample file parsing.
type CSVConfig struct {
	Strict    bool   `json:"strict" mapstructure:"strict"`
	Delimiter string `json:"delimiter" mapstructure:"delimiter"`
}

// MemoryConfig holds file output backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds in-memory SQLite backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Autosave bool           `json:"autosave" mapstructure:"autosave"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// InfluxConfig holds InfluxDB progress reporting settings
type InfluxConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Token   string `json:"token" mapstructure:"token"`
	Org     string `json:"org" mapstructure:"org"`
	Bucket  string `json:"bucket" mapstructure:"bucket"`
}

// MonitorConfig holds the status file writer settings
type MonitorConfig struct {
	Enabled  bool          `json:"enabled" mapstructure:"enabled"`
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./labelerlogs")

	viper.SetDefault("server.address", "127.0.0.1:8765")
	viper.SetDefault("server.maxUploadBytes", 32<<20)
	viper.SetDefault("server.shutdownWait", "5s")

	viper.SetDefault("map.centerLat", 0.0)
	viper.SetDefault("map.centerLng", 0.0)
	viper.SetDefault("map.zoom", 11)
	viper.SetDefault("map.tileUrl", "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}")

	viper.SetDefault("keys.next", "ArrowRight")
	viper.SetDefault("keys.previous", "ArrowLeft")

	viper.SetDefault("csv.strict", false)
	viper.SetDefault("csv.delimiter", ",")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.autosave", false)
	viper.SetDefault("storage.memory.outputDir", "./labeled")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./labeler.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "labeler")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "labeler")
	viper.SetDefault("influx.bucket", "labeling_progress")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "10s")

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

// GetServerConfig returns the HTTP listener settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:        viper.GetString("server.address"),
		MaxUploadBytes: viper.GetInt64("server.maxUploadBytes"),
		ShutdownWait:   viper.GetDuration("server.shutdownWait"),
	}
}

// GetMapConfig returns the initial map view.
func GetMapConfig() MapConfig {
	return MapConfig{
		CenterLat: viper.GetFloat64("map.centerLat"),
		CenterLng: viper.GetFloat64("map.centerLng"),
		Zoom:      viper.GetInt("map.zoom"),
		TileURL:   viper.GetString("map.tileUrl"),
	}
}

// GetKeysConfig returns the navigation shortcuts.
func GetKeysConfig() KeysConfig {
	return KeysConfig{
		Next:     viper.GetString("keys.next"),
		Previous: viper.GetString("keys.previous"),
	}
}

// GetCSVConfig returns the sample file parsing options.
func GetCSVConfig() CSVConfig {
	return CSVConfig{
		Strict:    viper.GetBool("csv.strict"),
		Delimiter: viper.GetString("csv.delimiter"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:     viper.GetString("storage.type"),
		Autosave: viper.GetBool("storage.autosave"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL:     viper.GetString("influx.url"),
		Token:   viper.GetString("influx.token"),
		Org:     viper.GetString("influx.org"),
		Bucket:  viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:  viper.GetBool("monitor.enabled"),
		Interval: viper.GetDuration("monitor.interval"),
	}
}
