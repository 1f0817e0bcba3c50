package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string
	LogLevel   string

	CameraBackend string
	CaptureRoot   string
	OpenTimeout   time.Duration
	PreviewWidth  int
	PreviewHeight int
	FrameInterval time.Duration

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatusTTL     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		CameraBackend: getEnv("CAMERA_BACKEND", "simulated"),
		CaptureRoot:   getEnv("CAPTURE_ROOT", "./captures"),
		OpenTimeout:   getEnvDuration("OPEN_TIMEOUT", 2500*time.Millisecond),
		PreviewWidth:  getEnvInt("PREVIEW_WIDTH", 1280),
		PreviewHeight: getEnvInt("PREVIEW_HEIGHT", 720),
		FrameInterval: getEnvDuration("PREVIEW_FRAME_INTERVAL", 100*time.Millisecond),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		StatusTTL:     getEnvDuration("STATUS_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
