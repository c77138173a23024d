package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Scrape target
	NewsURL     string
	ProxyPrefix string

	// Fetch behavior
	FetchTimeout time.Duration

	// Cache / history
	CacheTTL    time.Duration
	HistorySize int

	// Autonomous polling
	PollInterval time.Duration

	// Calendar sync
	SyncBatchSize    int
	SyncBatchPause   time.Duration
	CalendarEndpoint string
	CalendarToken    string

	// Storage backend: memory, redis or memcache
	StorageBackend string

	// Redis configuration
	RedisAddr string
	RedisDB   int

	// Memcache configuration
	MemcacheAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "60"))
	cacheTTL, _ := strconv.Atoi(getEnv("CACHE_TTL_MINUTES", "30"))
	historySize, _ := strconv.Atoi(getEnv("HISTORY_MAX_SIZE", "100"))
	pollInterval, _ := strconv.Atoi(getEnv("POLL_INTERVAL_MINUTES", "60"))
	batchSize, _ := strconv.Atoi(getEnv("SYNC_BATCH_SIZE", "5"))
	batchPause, _ := strconv.Atoi(getEnv("SYNC_BATCH_PAUSE_MS", "1000"))

	return &Config{
		NewsURL:          getEnv("POGO_NEWS_URL", "https://pokemongo.com/es/news"),
		ProxyPrefix:      getEnv("FETCH_PROXY_PREFIX", "https://api.allorigins.win/raw?url="),
		FetchTimeout:     time.Duration(fetchTimeout) * time.Second,
		CacheTTL:         time.Duration(cacheTTL) * time.Minute,
		HistorySize:      historySize,
		PollInterval:     time.Duration(pollInterval) * time.Minute,
		SyncBatchSize:    batchSize,
		SyncBatchPause:   time.Duration(batchPause) * time.Millisecond,
		CalendarEndpoint: getEnv("CALENDAR_ENDPOINT", ""),
		CalendarToken:    getEnv("CALENDAR_TOKEN", ""),
		StorageBackend:   getEnv("STORAGE_BACKEND", "memory"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          redisDB,
		MemcacheAddr:     getEnv("MEMCACHE_ADDR", "localhost:11211"),
		Environment:      getEnv("POGO_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.NewsURL == "" {
		return fmt.Errorf("news URL must not be empty")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %v", c.FetchTimeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %v", c.CacheTTL)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive, got %d", c.HistorySize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.SyncBatchSize <= 0 {
		return fmt.Errorf("sync batch size must be positive, got %d", c.SyncBatchSize)
	}
	switch c.StorageBackend {
	case "memory", "redis", "memcache":
	default:
		return fmt.Errorf("unknown storage backend: %q", c.StorageBackend)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
