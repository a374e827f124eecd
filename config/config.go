package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds every engine subsystem's configuration.
type AppConfig struct {
	ServerConfig  ServerConfig
	EngineConfig  EngineConfig
	CacheConfig   CacheConfig
	CatalogConfig CatalogConfig
}

// ServerConfig controls cmd/literoomd's HTTP/WS control plane.
type ServerConfig struct {
	Port     string `env:"SERVER_PORT,default=8080"`
	LogLevel string `env:"SERVER_LOG_LEVEL,default=info"`
}

// EngineConfig holds the executor's tunables. GPUEnabled decides whether
// cmd/literoomd builds a GPU backend. MinAvailableMemory is loaded from the
// environment but not passed to the executor: executor.NewMemoryGuard uses
// its own fixed 512 MiB floor.
type EngineConfig struct {
	GPUEnabled         bool  `env:"ENGINE_GPU_ENABLED,default=true"`
	MinAvailableMemory int64 `env:"ENGINE_MIN_AVAILABLE_MEMORY_BYTES,default=536870912"`
}

// CacheConfig controls the thumbnail/preview service's on-disk tier.
type CacheConfig struct {
	DiskDir string `env:"CACHE_DIR,default=.literoom/cache"`
}

// CatalogConfig controls the embedded catalog database and the directory
// scanner's starting root.
type CatalogConfig struct {
	DatabaseDir  string `env:"CATALOG_DB_DIR,default=.literoom/db"`
	DatabaseName string `env:"CATALOG_DB_NAME,default=literoom"`
	Root         string `env:"CATALOG_ROOT,default="`
}

// IsDevelopmentMode checks if the application is running in development mode
func IsDevelopmentMode() bool {
	return strings.ToLower(os.Getenv("SERVER_ENV")) == "development"
}

// LoadEnvironment loads environment variables from the appropriate .env
// file. It should be called once at the start of cmd/literoomd's main()
// before any Load*Config call.
func LoadEnvironment() {
	isDev := IsDevelopmentMode()

	envFile := ".env"
	if isDev {
		if _, err := os.Stat(".env.development"); err == nil {
			envFile = ".env.development"
		}
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Running without %s file, using environment variables", envFile)
	} else {
		log.Printf("Environment variables loaded from %s file", envFile)
	}

	if isDev {
		log.Println("Running in DEVELOPMENT mode")
	}
}

// LoadAppConfig loads every subsystem's configuration from the environment.
func LoadAppConfig() AppConfig {
	return AppConfig{
		ServerConfig:  LoadServerConfig(),
		EngineConfig:  LoadEngineConfig(),
		CacheConfig:   LoadCacheConfig(),
		CatalogConfig: LoadCatalogConfig(),
	}
}

func LoadServerConfig() ServerConfig {
	isDev := IsDevelopmentMode()
	cfg := ServerConfig{Port: "8080", LogLevel: "info"}
	if isDev {
		cfg.LogLevel = "debug"
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if logLevel := os.Getenv("SERVER_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

// LoadEngineConfig loads the render executor's tunables from the
// environment.
func LoadEngineConfig() EngineConfig {
	cfg := EngineConfig{GPUEnabled: true, MinAvailableMemory: 512 * 1024 * 1024}

	if raw := os.Getenv("ENGINE_GPU_ENABLED"); raw == "false" {
		cfg.GPUEnabled = false
	}
	if raw := strings.TrimSpace(os.Getenv("ENGINE_MIN_AVAILABLE_MEMORY_BYTES")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			cfg.MinAvailableMemory = v
		}
	}

	return cfg
}

// LoadCacheConfig loads the thumbnail/preview cache's on-disk location.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{DiskDir: ".literoom/cache"}
	if dir := os.Getenv("CACHE_DIR"); dir != "" {
		cfg.DiskDir = dir
	}
	return cfg
}

// LoadCatalogConfig loads the embedded catalog database's location and the
// scanner's default root.
func LoadCatalogConfig() CatalogConfig {
	cfg := CatalogConfig{DatabaseDir: ".literoom/db", DatabaseName: "literoom"}
	if dir := os.Getenv("CATALOG_DB_DIR"); dir != "" {
		cfg.DatabaseDir = dir
	}
	if name := os.Getenv("CATALOG_DB_NAME"); name != "" {
		cfg.DatabaseName = name
	}
	if root := os.Getenv("CATALOG_ROOT"); root != "" {
		cfg.Root = root
	}
	return cfg
}
