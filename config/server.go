package config

import (
	"strings"
	"sync"
	"time"
)

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

type ServerConfig struct {
	Port            string
	AllowOrigins    []string
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps multipart request bodies.
	MaxUploadBytes int64
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()
		serverConfig = &ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			AllowOrigins:    strings.Split(getEnv("CORS_ALLOW_ORIGINS", "*"), ","),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
			MaxUploadBytes:  int64(getEnvInt("SERVER_MAX_UPLOAD_MB", 64)) << 20,
		}
	})
	return serverConfig
}
