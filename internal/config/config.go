package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// QueueConfig selects the scan job queue backend and its retry budget.
type QueueConfig struct {
	// Driver is "kafka" or "memory". The memory driver only works when the
	// worker runs inside the API process.
	Driver         string
	Brokers        []string
	Topic          string
	DLQTopic       string
	ConsumerGroup  string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Workers        int
}

// ScannerConfig holds VirusTotal settings. An empty APIKey disables scanning.
type ScannerConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

// UploadConfig bounds what the upload endpoints accept.
type UploadConfig struct {
	MaxSize             int64
	AllowedContentTypes []string
}

// PaginationConfig holds default and maximum page sizes.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// NetworkConfig restricts which client addresses may reach the API. An empty
// AllowedIPs list turns the check off. Names labels known addresses in logs.
type NetworkConfig struct {
	AllowedIPs []string
	Names      map[string]string
	// ProxyHeader, when set, is the header Fiber reads the client IP from.
	ProxyHeader string
}

// LogConfig controls the hclog root logger.
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	JWTSecret     string
	StatsCacheTTL time.Duration
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Queue         QueueConfig
	Scanner       ScannerConfig
	Upload        UploadConfig
	Pagination    PaginationConfig
	Network       NetworkConfig
	Log           LogConfig
}

var defaultContentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		StatsCacheTTL: time.Duration(getEnvInt("STATS_CACHE_TTL_SEC", 300)) * time.Second,
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Queue: QueueConfig{
			Driver:         getEnv("QUEUE_DRIVER", "kafka"),
			Brokers:        getEnvList("KAFKA_BROKERS", []string{"localhost:19092"}),
			Topic:          getEnv("SCAN_TOPIC", "docvault.scan-jobs"),
			DLQTopic:       getEnv("SCAN_DLQ_TOPIC", "docvault.scan-jobs.dlq"),
			ConsumerGroup:  getEnv("SCAN_CONSUMER_GROUP", "docvault-scan-workers"),
			MaxAttempts:    getEnvInt("SCAN_MAX_ATTEMPTS", 5),
			InitialBackoff: time.Duration(getEnvInt("SCAN_INITIAL_BACKOFF_MS", 5000)) * time.Millisecond,
			MaxBackoff:     time.Duration(getEnvInt("SCAN_MAX_BACKOFF_MS", 300000)) * time.Millisecond,
			Workers:        getEnvInt("SCAN_WORKERS", 1),
		},
		Scanner: ScannerConfig{
			APIKey:       getEnv("VIRUSTOTAL_API_KEY", ""),
			BaseURL:      getEnv("VIRUSTOTAL_BASE_URL", "https://www.virustotal.com/api/v3"),
			PollInterval: time.Duration(getEnvInt("SCAN_POLL_INTERVAL_MS", 15000)) * time.Millisecond,
			Timeout:      time.Duration(getEnvInt("SCAN_TIMEOUT_SEC", 300)) * time.Second,
		},
		Upload: UploadConfig{
			MaxSize:             getEnvSize("MAX_UPLOAD_SIZE", 20*units.MiB),
			AllowedContentTypes: getEnvList("ALLOWED_CONTENT_TYPES", defaultContentTypes),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getEnvInt("PAGINATION_DEFAULT_LIMIT", 20),
			MaxLimit:     getEnvInt("PAGINATION_MAX_LIMIT", 100),
		},
		Network: NetworkConfig{
			AllowedIPs:  getEnvList("WHITELISTED_IPS", nil),
			Names:       getEnvMap("IP_NAME_MAPPING"),
			ProxyHeader: getEnv("PROXY_HEADER", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// getEnvMap parses "key:value,key:value" pairs. The last colon splits a
// pair so IPv6 keys survive. Pairs missing either side are skipped.
func getEnvMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range getEnvList(key, nil) {
		i := strings.LastIndex(pair, ":")
		if i < 0 {
			continue
		}
		k, v := strings.TrimSpace(pair[:i]), strings.TrimSpace(pair[i+1:])
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}

// getEnvSize parses human sizes such as "20MB" or "1GiB".
func getEnvSize(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := units.RAMInBytes(v)
		if err == nil && n > 0 {
			return n
		}
	}
	return def
}
