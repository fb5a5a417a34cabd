package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	defaultNumImportWorkers = 4
	defaultMaxRetries       = 3
	defaultBatchSize        = 10

	defaultVisibilitySeconds = 300
	defaultHeartbeatSeconds  = 60
	defaultReclaimSeconds    = 30

	defaultDriveAPIDelayMS = 100
	defaultSignedURLTTL    = 3600
)

type Config struct {
	// database path (sqlite)
	DatabasePath string

	// object storage configuration
	MediaStoragePath string // root for imported photo objects
	PublicBaseURL    string // base URL the signed /media links are built against
	URLSigningSecret []byte // HMAC key for time-limited media URLs
	SignedURLTTL     time.Duration

	// message queue (Redis)
	RedisURL  string
	QueueName string

	// external folder-tree provider (Google Drive style REST API)
	DriveAPIBaseURL   string
	DriveTokenURL     string
	DriveClientID     string
	DriveClientSecret string
	DriveAPIDelay     time.Duration // mandatory inter-request delay during discovery
	TokenCipherKey    []byte        // 32 bytes, encrypts stored drive credentials

	// face scoring service
	EmbeddingServiceURL string

	// watermark applied to imported photos; empty disables the transform
	WatermarkPath string

	// import worker settings
	NumImportWorkers  int
	MaxRetries        int
	QueueBatchSize    int
	VisibilityTimeout time.Duration
	HeartbeatInterval time.Duration
	ReclaimInterval   time.Duration

	// auth
	JWTSecret []byte
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "photovault.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	signingSecret := os.Getenv("URL_SIGNING_SECRET")
	if signingSecret == "" {
		return Config{}, fmt.Errorf("URL_SIGNING_SECRET must be set")
	}

	cipherKeyHex := os.Getenv("TOKEN_CIPHER_KEY")
	cipherKey, err := hex.DecodeString(cipherKeyHex)
	if err != nil || len(cipherKey) != 32 {
		return Config{}, fmt.Errorf("TOKEN_CIPHER_KEY must be 64 hex characters (32 bytes)")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := Config{
		DatabasePath:     dbPath,
		MediaStoragePath: absMediaStorage,
		PublicBaseURL:    getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"),
		URLSigningSecret: []byte(signingSecret),
		SignedURLTTL:     time.Duration(getEnvIntOrDefault("SIGNED_URL_TTL_SECONDS", defaultSignedURLTTL)) * time.Second,

		RedisURL:  getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		QueueName: getEnvOrDefault("IMPORT_QUEUE_NAME", "photo_import"),

		DriveAPIBaseURL:   getEnvOrDefault("DRIVE_API_BASE_URL", "https://www.googleapis.com/drive/v3"),
		DriveTokenURL:     getEnvOrDefault("DRIVE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		DriveClientID:     os.Getenv("DRIVE_CLIENT_ID"),
		DriveClientSecret: os.Getenv("DRIVE_CLIENT_SECRET"),
		DriveAPIDelay:     time.Duration(getEnvIntOrDefault("DRIVE_API_DELAY_MS", defaultDriveAPIDelayMS)) * time.Millisecond,
		TokenCipherKey:    cipherKey,

		EmbeddingServiceURL: getEnvOrDefault("EMBEDDING_SERVICE_URL", "http://localhost:8000"),

		WatermarkPath: os.Getenv("WATERMARK_PATH"),

		NumImportWorkers:  getEnvIntOrDefault("NUM_IMPORT_WORKERS", defaultNumImportWorkers),
		MaxRetries:        getEnvIntOrDefault("IMPORT_MAX_RETRIES", defaultMaxRetries),
		QueueBatchSize:    getEnvIntOrDefault("QUEUE_BATCH_SIZE", defaultBatchSize),
		VisibilityTimeout: time.Duration(getEnvIntOrDefault("QUEUE_VISIBILITY_SECONDS", defaultVisibilitySeconds)) * time.Second,
		HeartbeatInterval: time.Duration(getEnvIntOrDefault("QUEUE_HEARTBEAT_SECONDS", defaultHeartbeatSeconds)) * time.Second,
		ReclaimInterval:   time.Duration(getEnvIntOrDefault("QUEUE_RECLAIM_SECONDS", defaultReclaimSeconds)) * time.Second,

		JWTSecret: []byte(jwtSecret),
	}

	return cfg, nil
}
