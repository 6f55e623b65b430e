package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	PortalBaseURL   string `mapstructure:"PORTAL_BASE_URL"`
	OutputDir       string `mapstructure:"OUTPUT_DIR"`
	ImagesDir       string `mapstructure:"IMAGES_DIR"`
	CredentialsFile string `mapstructure:"CREDENTIALS_FILE"`
	Headless        bool   `mapstructure:"HEADLESS"`
	// ChromePath overrides the browser binary lookup when set.
	ChromePath string `mapstructure:"CHROME_PATH"`

	// DriverTimeout bounds every single browser operation.
	DriverTimeout    time.Duration `mapstructure:"DRIVER_TIMEOUT"`
	LoginWait        time.Duration `mapstructure:"LOGIN_WAIT"`
	NavigationWait   time.Duration `mapstructure:"NAVIGATION_WAIT"`
	ListingLoadWait  time.Duration `mapstructure:"LISTING_LOAD_WAIT"`
	ActivityLoadWait time.Duration `mapstructure:"ACTIVITY_LOAD_WAIT"`
	DownloadTimeout  time.Duration `mapstructure:"DOWNLOAD_TIMEOUT"`

	MaxDiscoveryAttempts int  `mapstructure:"MAX_DISCOVERY_ATTEMPTS"`
	AutoReorganize       bool `mapstructure:"AUTO_REORGANIZE"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// RunLockTTL bounds how long a crashed run keeps other processes out.
	RunLockTTL time.Duration `mapstructure:"RUN_LOCK_TTL"`

	PostgresURL string `mapstructure:"POSTGRES_URL"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// The .env file is optional; the environment alone is a valid configuration.
	_ = v.ReadInConfig()

	v.SetDefault("PORTAL_BASE_URL", "https://student.iclicker.com")
	v.SetDefault("OUTPUT_DIR", "questions")
	v.SetDefault("IMAGES_DIR", "images")
	v.SetDefault("CREDENTIALS_FILE", "questions/.env")
	v.SetDefault("HEADLESS", true)
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("DRIVER_TIMEOUT", 30*time.Second)
	v.SetDefault("LOGIN_WAIT", 5*time.Second)
	v.SetDefault("NAVIGATION_WAIT", 3*time.Second)
	v.SetDefault("LISTING_LOAD_WAIT", 8*time.Second)
	v.SetDefault("ACTIVITY_LOAD_WAIT", 8*time.Second)
	v.SetDefault("DOWNLOAD_TIMEOUT", 15*time.Second)
	v.SetDefault("MAX_DISCOVERY_ATTEMPTS", 20)
	v.SetDefault("AUTO_REORGANIZE", true)
	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RUN_LOCK_TTL", 2*time.Hour)
	v.SetDefault("POSTGRES_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
