package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Trakt
	TraktClientID     string
	TraktClientSecret string

	// TMDB
	TMDBAPIKey  string
	TMDBBaseURL string // override for self-hosted proxies, empty = api.themoviedb.org

	// Prowlarr
	ProwlarrURL string
	ProwlarrKey string

	// StremThru
	StremThruURL   string
	StremThruStore string

	// Real-Debrid
	RealDebridToken string
	RealDebridURL   string // override for proxies, empty = api.real-debrid.com

	// Resolution pipeline
	RateGateMs        int // min spacing between calls to the indexer and debrid origins
	ResolveTimeoutMs  int // wall-clock budget for the debrid state machine
	PollIntervalMs    int // debrid info polling interval
	MetaCacheTTLHours int // 0 = no expiry (process-lifetime cache)

	// Lineup
	ChannelItemLimit int // programs kept per channel
	WarmupPerChannel int // programs warmed per channel by the scheduler

	// Server
	ServerPort string

	// Paths
	TokenFile     string // $CONFIG_DIR/token.json
	BlacklistFile string // $CONFIG_DIR/blacklist.txt
	DatabaseFile  string // $CONFIG_DIR/neocable.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("STREMTHRU_STORE", "realdebrid")
	viper.SetDefault("RATE_GATE_MS", 1200)
	viper.SetDefault("RESOLVE_TIMEOUT_MS", 30000)
	viper.SetDefault("POLL_INTERVAL_MS", 1000)
	viper.SetDefault("META_CACHE_TTL_HOURS", 0)
	viper.SetDefault("CHANNEL_ITEM_LIMIT", 12)
	viper.SetDefault("WARMUP_PER_CHANNEL", 4)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "neocable")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// Trakt
		TraktClientID:     viper.GetString("TRAKT_CLIENT_ID"),
		TraktClientSecret: viper.GetString("TRAKT_CLIENT_SECRET"),

		// TMDB
		TMDBAPIKey:  viper.GetString("TMDB_API_KEY"),
		TMDBBaseURL: viper.GetString("TMDB_BASE_URL"),

		// Prowlarr
		ProwlarrURL: viper.GetString("PROWLARR_URL"),
		ProwlarrKey: viper.GetString("PROWLARR_KEY"),

		// StremThru
		StremThruURL:   viper.GetString("STREMTHRU_URL"),
		StremThruStore: viper.GetString("STREMTHRU_STORE"),

		// Real-Debrid
		RealDebridToken: viper.GetString("REALDEBRID_TOKEN"),
		RealDebridURL:   viper.GetString("REALDEBRID_URL"),

		// Resolution pipeline
		RateGateMs:        viper.GetInt("RATE_GATE_MS"),
		ResolveTimeoutMs:  viper.GetInt("RESOLVE_TIMEOUT_MS"),
		PollIntervalMs:    viper.GetInt("POLL_INTERVAL_MS"),
		MetaCacheTTLHours: viper.GetInt("META_CACHE_TTL_HOURS"),

		// Lineup
		ChannelItemLimit: viper.GetInt("CHANNEL_ITEM_LIMIT"),
		WarmupPerChannel: viper.GetInt("WARMUP_PER_CHANNEL"),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		TokenFile:     filepath.Join(configDir, "token.json"),
		BlacklistFile: filepath.Join(configDir, "blacklist.txt"),
		DatabaseFile:  filepath.Join(configDir, "neocable.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.TraktClientID == "" {
		return nil, fmt.Errorf("TRAKT_CLIENT_ID is required")
	}
	if config.TraktClientSecret == "" {
		return nil, fmt.Errorf("TRAKT_CLIENT_SECRET is required")
	}
	if config.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}
	if config.ProwlarrURL == "" {
		return nil, fmt.Errorf("PROWLARR_URL is required")
	}
	if config.ProwlarrKey == "" {
		return nil, fmt.Errorf("PROWLARR_KEY is required")
	}
	if config.StremThruURL == "" {
		return nil, fmt.Errorf("STREMTHRU_URL is required")
	}
	if config.RealDebridToken == "" {
		return nil, fmt.Errorf("REALDEBRID_TOKEN is required")
	}

	return config, nil
}
