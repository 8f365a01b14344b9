// Package config provides centralized default values for diagram-go
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Engine Acquisition
	EngineSymbol       string        // Symbol the engine must expose in the host environment
	EngineEndpoint     string        // Pre-provisioned engine endpoint, adopted directly when set
	EngineManifestURL  string        // Pinned, versioned remote engine bundle manifest
	OfflineMode        bool          // Headless context: no host environment, no fetch
	EngineFetchTimeout time.Duration // Bound on the remote bundle fetch

	// Engine Configuration (applied once per widget instance)
	EngineTheme         string
	EngineFontFamily    string
	EngineSecurityLevel string
	EngineLogLevel      int

	// Render Pipeline
	RenderTimeout  time.Duration
	RenderCacheTTL time.Duration

	// Widget Registry
	WidgetIdleTTL   time.Duration
	CleanupInterval time.Duration
	MaxWidgets      int

	// Persistence
	DBDriver         string
	DBPath           string
	TursoDatabaseURL string
	TursoAuthToken   string

	// Warming
	WarmingEnabled bool
	WarmingLimit   int

	// Sysop
	SysOpPassword string
	JWTSecret     string

	// Alerting
	AlertEmailTo string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Engine Acquisition
	EngineSymbol = getEnvString("ENGINE_SYMBOL", "mermaid")
	EngineEndpoint = getEnvString("ENGINE_ENDPOINT", "")
	EngineManifestURL = getEnvString("ENGINE_MANIFEST_URL",
		"https://engine.atriskmedia.com/mermaid/10.9.1/manifest.json")
	OfflineMode = getEnvBool("OFFLINE_MODE", false)
	EngineFetchTimeout = getEnvDuration("ENGINE_FETCH_TIMEOUT", 30*time.Second)

	// Engine Configuration
	EngineTheme = getEnvString("ENGINE_THEME", "default")
	EngineFontFamily = getEnvString("ENGINE_FONT_FAMILY", "monospace")
	EngineSecurityLevel = getEnvString("ENGINE_SECURITY_LEVEL", "strict")
	EngineLogLevel = getEnvInt("ENGINE_LOG_LEVEL", 5)

	// Render Pipeline
	RenderTimeout = getEnvDuration("RENDER_TIMEOUT", 30*time.Second)
	RenderCacheTTL = getEnvDuration("RENDER_CACHE_TTL", time.Hour)

	// Widget Registry
	WidgetIdleTTL = getEnvDuration("WIDGET_IDLE_TTL", 30*time.Minute)
	CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute)
	MaxWidgets = getEnvInt("MAX_WIDGETS", 1000)

	// Persistence
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "diagram.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")

	// Warming
	WarmingEnabled = getEnvBool("WARMING_ENABLED", true)
	WarmingLimit = getEnvInt("WARMING_LIMIT", 20)

	// Sysop
	SysOpPassword = getEnvString("SYSOP_PASSWORD", "")
	JWTSecret = getEnvString("JWT_SECRET", "")

	// Alerting
	AlertEmailTo = getEnvString("ALERT_EMAIL_TO", "")
}
