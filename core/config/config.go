package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	MCP        MCPConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	WorkerPool WorkerPoolConfig
	Scheduler  SchedulerConfig
	Generation GenerationConfig
	Publish    PublishConfig
	Directory  DirectoryConfig
	MediaHost  MediaHostConfig
	YouTube    YouTubeConfig
	Social     SocialConfig
	Storage    StorageConfig
	Sitemap    SitemapConfig
	Monitor    MonitorConfig
	APIKeys    APIKeysConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	WebhookSecret      string
	// SecretKey seals stored client credentials; empty stores them as plain text.
	SecretKey string
}

type MCPConfig struct {
	Port string
	Host string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
	Uploads  string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type SchedulerConfig struct {
	Enabled           bool
	TickInterval      time.Duration
	ReconcileInterval time.Duration
	StaleGeneration   time.Duration
	CycleLockTTL      time.Duration
}

type GenerationConfig struct {
	Provider    string // openai | gemini
	TextModel   string
	ImageModel  string
	ImageCount  int
	Concurrency int
	Timeout     time.Duration
}

type PublishConfig struct {
	Concurrency int
	Timeout     time.Duration
}

// DirectoryConfig describes the shared-directory brand (its CMS and social profile).
type DirectoryConfig struct {
	Name        string
	CMSBaseURL  string
	CMSUser     string
	CMSPassword string
	SocialKey   string
}

type MediaHostConfig struct {
	AudioBaseURL string
	AudioToken   string
	VideoBaseURL string
	VideoToken   string
}

type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Privacy      string
	ChunkSize    int
}

type SocialConfig struct {
	BaseURL string
	APIKey  string
}

type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicURL    string
	UsePathStyle bool
}

type SitemapConfig struct {
	CacheSize    int
	CacheTTL     time.Duration
	RelatedPages int
}

// MonitorConfig sizes the in-memory pipeline event trail.
type MonitorConfig struct {
	Buffer int
	TTL    time.Duration
}

type APIKeysConfig struct {
	Gemini string
	OpenAI string
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := false
	if v := os.Getenv("APP_DEBUG"); v == "true" || v == "1" || v == "on" {
		debug = true
	}

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v0.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		WebhookSecret:      getEnv("APP_WEBHOOK_SECRET", ""),
		SecretKey:          getEnv("APP_SECRET_KEY", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
		Uploads:  getEnv("PATH_UPLOADS", filepath.Join(baseDir, "uploads")),
	}

	dbDriver := getEnv("DB_DRIVER", "sqlite")
	dbName := filepath.Join(pathsCfg.Storages, "localseo.db")
	if dbDriver == "postgres" {
		dbName = getEnv("DB_NAME", "localseo")
	}
	dbCfg := DatabaseConfig{
		Driver:          dbDriver,
		Name:            dbName,
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "localseo:"),
	}

	cfg := &Config{
		App:        appCfg,
		MCP:        MCPConfig{Port: getEnv("MCP_PORT", "8080"), Host: getEnv("MCP_HOST", "localhost")},
		Paths:      pathsCfg,
		Database:   dbCfg,
		WorkerPool: WorkerPoolConfig{Size: getEnvInt("CYCLE_WORKER_POOL_SIZE", 8), QueueSize: getEnvInt("CYCLE_WORKER_QUEUE_SIZE", 64)},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvBool("SCHEDULER_ENABLED", true),
			TickInterval:      getEnvDuration("SCHEDULER_TICK", 15*time.Minute),
			ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 2*time.Minute),
			StaleGeneration:   getEnvDuration("STALE_GENERATION_AFTER", 45*time.Minute),
			CycleLockTTL:      getEnvDuration("CYCLE_LOCK_TTL", 30*time.Minute),
		},
		Generation: GenerationConfig{
			Provider:    getEnv("GENERATION_PROVIDER", "openai"),
			TextModel:   getEnv("GENERATION_TEXT_MODEL", ""),
			ImageModel:  getEnv("GENERATION_IMAGE_MODEL", ""),
			ImageCount:  getEnvInt("GENERATION_IMAGE_COUNT", 2),
			Concurrency: getEnvInt("GENERATION_CONCURRENCY", 4),
			Timeout:     getEnvDuration("GENERATION_TIMEOUT", 5*time.Minute),
		},
		Publish: PublishConfig{
			Concurrency: getEnvInt("PUBLISH_CONCURRENCY", 4),
			Timeout:     getEnvDuration("PUBLISH_TIMEOUT", 2*time.Minute),
		},
		Directory: DirectoryConfig{
			Name:        getEnv("DIRECTORY_NAME", ""),
			CMSBaseURL:  getEnv("DIRECTORY_CMS_URL", ""),
			CMSUser:     getEnv("DIRECTORY_CMS_USER", ""),
			CMSPassword: getEnv("DIRECTORY_CMS_PASSWORD", ""),
			SocialKey:   getEnv("DIRECTORY_SOCIAL_KEY", ""),
		},
		MediaHost: MediaHostConfig{
			AudioBaseURL: getEnv("AUDIO_HOST_URL", ""),
			AudioToken:   getEnv("AUDIO_HOST_TOKEN", ""),
			VideoBaseURL: getEnv("VIDEO_HOST_URL", ""),
			VideoToken:   getEnv("VIDEO_HOST_TOKEN", ""),
		},
		YouTube: YouTubeConfig{
			ClientID:     getEnv("YOUTUBE_CLIENT_ID", ""),
			ClientSecret: getEnv("YOUTUBE_CLIENT_SECRET", ""),
			RefreshToken: getEnv("YOUTUBE_REFRESH_TOKEN", ""),
			Privacy:      getEnv("YOUTUBE_PRIVACY", "public"),
			ChunkSize:    getEnvInt("YOUTUBE_CHUNK_SIZE", 8*1024*1024),
		},
		Social: SocialConfig{
			BaseURL: getEnv("SOCIAL_API_URL", ""),
			APIKey:  getEnv("SOCIAL_API_KEY", ""),
		},
		Storage: StorageConfig{
			Endpoint:     getEnv("S3_ENDPOINT", ""),
			Region:       getEnv("S3_REGION", "us-east-1"),
			Bucket:       getEnv("S3_BUCKET", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			PublicURL:    getEnv("S3_PUBLIC_URL", ""),
			UsePathStyle: getEnvBool("S3_PATH_STYLE", true),
		},
		Sitemap: SitemapConfig{
			CacheSize:    getEnvInt("SITEMAP_CACHE_SIZE", 256),
			CacheTTL:     getEnvDuration("SITEMAP_CACHE_TTL", 6*time.Hour),
			RelatedPages: getEnvInt("SITEMAP_RELATED_PAGES", 3),
		},
		Monitor: MonitorConfig{
			Buffer: getEnvInt("MONITOR_BUFFER", 200),
			TTL:    getEnvDuration("MONITOR_TTL", 0),
		},
		APIKeys: APIKeysConfig{
			Gemini: getEnv("GEMINI_API_KEY", ""),
			OpenAI: getEnv("OPENAI_API_KEY", ""),
		},
	}

	Global = cfg
	return cfg, nil
}
