package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/dkoroteev/gar-sync/gar"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	GarSync GarSyncConfig `mapstructure:"garsync"`
}

// GarSyncConfig stores the registry sync pipeline configuration.
type GarSyncConfig struct {
	DataDir   string          `mapstructure:"dataDir"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Levels    LevelsConfig    `mapstructure:"levels"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// RemoteConfig stores the manifest/download endpoint settings.
type RemoteConfig struct {
	BaseURL        string `mapstructure:"baseURL"`
	ManifestPath   string `mapstructure:"manifestPath"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`

	// RetryAttempts and RetryBaseDelaySeconds are reserved: they are parsed
	// and validated but no retry loop consumes them yet.
	RetryAttempts         int `mapstructure:"retryAttempts"`
	RetryBaseDelaySeconds int `mapstructure:"retryBaseDelaySeconds"`
}

// RateLimitConfig stores the sliding-window admission settings for remote calls.
type RateLimitConfig struct {
	Capacity      int `mapstructure:"capacity"`
	WindowSeconds int `mapstructure:"windowSeconds"`
}

// LevelsConfig stores the reference-level cache settings.
type LevelsConfig struct {
	CacheTTLMinutes int `mapstructure:"cacheTTLMinutes"`
}

// IngestConfig stores the concurrent ingestion settings.
type IngestConfig struct {
	// MaxWorkers bounds the per-file fan-out; 0 picks a CPU-derived default.
	MaxWorkers int `mapstructure:"maxWorkers"`

	// ExcludedLevelNames lists reference-level display names whose records
	// are dropped during filtering.
	ExcludedLevelNames []string `mapstructure:"excludedLevelNames"`
}

var AppConfig Config

// DefaultExcludedLevelNames are the fine-grained address levels that never
// appear in street-level reports.
var DefaultExcludedLevelNames = []string{
	"Земельный участок",
	"Здание (сооружение)",
	"Помещение",
	"Машино-место",
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("..")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("garsync.dataDir", ".")
	viper.SetDefault("garsync.remote.baseURL", internal.DefaultRemoteBaseURL)
	viper.SetDefault("garsync.remote.manifestPath", internal.DefaultRemoteManifestPath)
	viper.SetDefault("garsync.remote.timeoutSeconds", 60)
	viper.SetDefault("garsync.remote.retryAttempts", 3)
	viper.SetDefault("garsync.remote.retryBaseDelaySeconds", 2)
	viper.SetDefault("garsync.rateLimit.capacity", 30)
	viper.SetDefault("garsync.rateLimit.windowSeconds", 60)
	viper.SetDefault("garsync.levels.cacheTTLMinutes", 60)
	viper.SetDefault("garsync.ingest.maxWorkers", 0)
	viper.SetDefault("garsync.ingest.excludedLevelNames", DefaultExcludedLevelNames)

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // garsync.remote.baseURL becomes GARSYNC_REMOTE_BASEURL

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
