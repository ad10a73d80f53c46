package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfigSection
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Store    StoreConfig
	Client   ClientConfig
	Redis    RedisConfig
}

type AppConfigSection struct {
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// StoreConfig selects the backend's system of record
type StoreConfig struct {
	Driver           string // "postgres" or "memory"
	SnapshotPath     string
	SnapshotInterval time.Duration
}

// ClientConfig drives requestctl and the RequestRepository it builds
type ClientConfig struct {
	Mode     string // "http" or "local"
	BaseURL  string
	Token    string
	Locale   string
	Timeout  time.Duration
	DataFile string
	UserID   uint
	Role     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

var AppConfig *Config

// Load reads configuration from config.yaml (if present) and the environment
func Load() {
	AppConfig = load(viper.New())
}

func load(v *viper.Viper) *Config {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	return &Config{
		App: AppConfigSection{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL: v.GetString("DB_URL"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Store: StoreConfig{
			Driver:           v.GetString("STORE_DRIVER"),
			SnapshotPath:     v.GetString("STORE_SNAPSHOT_PATH"),
			SnapshotInterval: v.GetDuration("STORE_SNAPSHOT_INTERVAL"),
		},
		Client: ClientConfig{
			Mode:     v.GetString("CLIENT_MODE"),
			BaseURL:  strings.TrimRight(v.GetString("CLIENT_BASE_URL"), "/"),
			Token:    v.GetString("CLIENT_TOKEN"),
			Locale:   v.GetString("CLIENT_LOCALE"),
			Timeout:  v.GetDuration("CLIENT_TIMEOUT"),
			DataFile: v.GetString("CLIENT_DATA_FILE"),
			UserID:   v.GetUint("CLIENT_USER_ID"),
			Role:     v.GetString("CLIENT_ROLE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("STORE_SNAPSHOT_PATH", "data/requests.json")
	v.SetDefault("STORE_SNAPSHOT_INTERVAL", "30s")
	v.SetDefault("CLIENT_MODE", "http")
	v.SetDefault("CLIENT_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("CLIENT_LOCALE", "en")
	v.SetDefault("CLIENT_TIMEOUT", "15s")
	v.SetDefault("CLIENT_DATA_FILE", "data/local-requests.json")
	v.SetDefault("CLIENT_ROLE", "customer")
	v.SetDefault("REDIS_DB", 0)
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
