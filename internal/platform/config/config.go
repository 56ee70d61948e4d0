package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "github.com/cheya01/facial-recog-poc-server/pkg/platform/strings"
)

// Config groups every setting the server reads at boot.
type Config struct {
	Server   Server
	Logging  Logging
	Storage  Storage
	Blob     Blob
	Oracle   Oracle
	Redis    RedisConfig
	Audit    Audit
	Calendar Calendar
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Logging selects slog handler and level.
type Logging struct {
	Level  string
	Format string // "json" or "text"
}

// Storage selects the visitor document store.
type Storage struct {
	Backend       string // "mongo", "postgres" or "memory"
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	MaxOpenConns  int
	MaxIdleConns  int
}

// Blob selects where visitor photos live.
type Blob struct {
	Backend       string // "s3", "cloudinary" or "memory"
	BucketName    string
	BucketRegion  string
	AccessKey     string
	SecretKey     string
	CloudinaryURL string
	CacheTTL      time.Duration
}

// Oracle points at the face comparison service.
type Oracle struct {
	URL     string
	Timeout time.Duration
}

// RedisConfig configures the optional reference-image cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit configures where verification events are published.
type Audit struct {
	KafkaBrokers []string
	Topic        string
	// MemoryCapacity bounds the in-process event store used without brokers.
	MemoryCapacity int
}

// Calendar fixes the timezone used to turn a YYYY-MM-DD date into a day window.
type Calendar struct {
	Location *time.Location
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envString("ADDR", portAddr()),
			AllowedOrigins: envList("CORS_ORIGINS", []string{"*"}),
			MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 5*1024*1024)),
		},
		Logging: Logging{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Storage: Storage{
			Backend:       envString("VISITOR_STORE", "mongo"),
			MongoURI:      os.Getenv("MONGO_URI"),
			MongoDatabase: envString("MONGO_DATABASE", "visitors"),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DB_MAX_IDLE_CONNS", 5),
		},
		Blob: Blob{
			Backend:       envString("BLOB_BACKEND", "s3"),
			BucketName:    os.Getenv("BUCKET_NAME"),
			BucketRegion:  os.Getenv("BUCKET_REGION"),
			AccessKey:     os.Getenv("ACCESS_KEY"),
			SecretKey:     os.Getenv("SECRET_KEY"),
			CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
			CacheTTL:      envDuration("BLOB_CACHE_TTL", 10*time.Minute),
		},
		Oracle: Oracle{
			URL:     strings.TrimRight(os.Getenv("PYTHON_SERVICE_URL"), "/"),
			Timeout: envDuration("ORACLE_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: Audit{
			KafkaBrokers:   envList("KAFKA_BROKERS", nil),
			Topic:          envString("AUDIT_TOPIC", "visitor.verification.audit"),
			MemoryCapacity: envInt("AUDIT_MEMORY_CAPACITY", 1000),
		},
		Calendar: Calendar{
			Location: envLocation("VISIT_TIMEZONE", time.UTC),
		},
	}
}

// portAddr honors the PORT variable the original deployment used.
func portAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":3000"
}

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// envInt reads a positive integer, returning defaultVal if unset or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	out := pstrings.DedupeAndTrim(strings.Split(s, ","))
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func envLocation(key string, defaultVal *time.Location) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return defaultVal
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return defaultVal
	}
	return loc
}
