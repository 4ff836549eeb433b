package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "dockyard.cfg.json"

// EnvPrefix namespaces environment overrides, e.g. DOCKYARD_DB_HOST.
const EnvPrefix = "DOCKYARD"

// StationConfig holds frame driver settings
type StationConfig struct {
	Name        string        `json:"name" mapstructure:"name"`
	FrameRate   int           `json:"frameRate" mapstructure:"frameRate"`
	Substeps    int           `json:"substeps" mapstructure:"substeps"`
	SampleEvery int           `json:"sampleEvery" mapstructure:"sampleEvery"`
	CatalogFile string        `json:"catalogFile" mapstructure:"catalogFile"`
	Seed        int64         `json:"seed" mapstructure:"seed"`
	Monitor     time.Duration `json:"monitorInterval" mapstructure:"monitorInterval"`
}

// ApproachConfig holds approach simulation settings
type ApproachConfig struct {
	MaxTicks   int `json:"maxTicks" mapstructure:"maxTicks"`
	TrackEvery int `json:"trackEvery" mapstructure:"trackEvery"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpDir      string        `json:"dumpDir" mapstructure:"dumpDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds streaming storage backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the journal backend
type StorageConfig struct {
	Type          string          `json:"type" mapstructure:"type"`
	FlushInterval time.Duration   `json:"flushInterval" mapstructure:"flushInterval"`
	Memory        MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket     WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ServerConfig holds the control API settings
type ServerConfig struct {
	Listen string `json:"listen" mapstructure:"listen"`
	URL    string `json:"url" mapstructure:"url"`
}

// S3Config holds journal upload settings
type S3Config struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Bucket       string `json:"bucket" mapstructure:"bucket"`
	Region       string `json:"region" mapstructure:"region"`
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey    string `json:"accessKey" mapstructure:"accessKey"`
	SecretKey    string `json:"secretKey" mapstructure:"secretKey"`
	Prefix       string `json:"prefix" mapstructure:"prefix"`
	UsePathStyle bool   `json:"usePathStyle" mapstructure:"usePathStyle"`
}

// InfluxConfig holds telemetry database settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./dockyard-logs")

	viper.SetDefault("station.name", "Dockyard Station")
	viper.SetDefault("station.frameRate", 60)
	viper.SetDefault("station.substeps", 1)
	viper.SetDefault("station.sampleEvery", 10)
	viper.SetDefault("station.catalogFile", "")
	viper.SetDefault("station.seed", 0)
	viper.SetDefault("station.monitorInterval", "5s")

	viper.SetDefault("approach.maxTicks", 6000)
	viper.SetDefault("approach.trackEvery", 10)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "dockyard")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", "2s")
	viper.SetDefault("storage.memory.outputDir", "./journals")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpDir", "./journals")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/journal")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "dockyard")
	viper.SetDefault("influx.bucket", "station")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "dockyard")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.url", "http://localhost:8080")

	viper.SetDefault("s3.enabled", false)
	viper.SetDefault("s3.bucket", "")
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.endpoint", "")
	viper.SetDefault("s3.accessKey", "")
	viper.SetDefault("s3.secretKey", "")
	viper.SetDefault("s3.prefix", "journals/")
	viper.SetDefault("s3.usePathStyle", false)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A .env file in
// the same directory is loaded into the environment first; a missing
// config file is not an error, every key has a default.
func Load(configDir string) error {
	setDefaults()

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %v", err)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Watch reloads the config file on change and calls onChange afterwards.
// It is a no-op when no config file was read.
func Watch(onChange func(fsnotify.Event)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("Config file changed", "file", e.Name, "op", e.Op.String())
		if onChange != nil {
			onChange(e)
		}
	})
	viper.WatchConfig()
}

// WriteDefault writes the current settings to configDir if no config file exists yet.
func WriteDefault(configDir string) (string, error) {
	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
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

// GetStationConfig returns the frame driver settings.
func GetStationConfig() StationConfig {
	return StationConfig{
		Name:        viper.GetString("station.name"),
		FrameRate:   viper.GetInt("station.frameRate"),
		Substeps:    viper.GetInt("station.substeps"),
		SampleEvery: viper.GetInt("station.sampleEvery"),
		CatalogFile: viper.GetString("station.catalogFile"),
		Seed:        viper.GetInt64("station.seed"),
		Monitor:     viper.GetDuration("station.monitorInterval"),
	}
}

// GetApproachConfig returns the approach simulation settings.
func GetApproachConfig() ApproachConfig {
	return ApproachConfig{
		MaxTicks:   viper.GetInt("approach.maxTicks"),
		TrackEvery: viper.GetInt("approach.trackEvery"),
	}
}

// GetStorageConfig returns the journal backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpDir:      viper.GetString("storage.sqlite.dumpDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetServerConfig returns the control API settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Listen: viper.GetString("server.listen"),
		URL:    viper.GetString("server.url"),
	}
}

// GetS3Config returns the journal upload settings.
func GetS3Config() S3Config {
	return S3Config{
		Enabled:      viper.GetBool("s3.enabled"),
		Bucket:       viper.GetString("s3.bucket"),
		Region:       viper.GetString("s3.region"),
		Endpoint:     viper.GetString("s3.endpoint"),
		AccessKey:    viper.GetString("s3.accessKey"),
		SecretKey:    viper.GetString("s3.secretKey"),
		Prefix:       viper.GetString("s3.prefix"),
		UsePathStyle: viper.GetBool("s3.usePathStyle"),
	}
}

// GetInfluxConfig returns the telemetry database settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}
