package config

import (
	"sync"
	"time"
)

var (
	queueOnce   sync.Once
	queueConfig *QueueConfig
)

// QueueConfig points the queue and worker at Redis.
type QueueConfig struct {
	RedisAddr      string
	RedisDB        int
	Concurrency    int
	MaxRetries     int
	RetryDelay     time.Duration
	ProcessTimeout time.Duration
	StatusTTL      time.Duration
}

func GetQueueConfig() *QueueConfig {
	queueOnce.Do(func() {
		loadEnv()
		queueConfig = &QueueConfig{
			RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
			RedisDB:        getEnvInt("REDIS_DB", 0),
			Concurrency:    getEnvInt("WORKER_CONCURRENCY", 4),
			MaxRetries:     getEnvInt("QUEUE_MAX_RETRIES", 1),
			RetryDelay:     getEnvDuration("QUEUE_RETRY_DELAY", time.Minute),
			ProcessTimeout: getEnvDuration("QUEUE_PROCESS_TIMEOUT", 2*time.Hour),
			StatusTTL:      getEnvDuration("QUEUE_STATUS_TTL", 24*time.Hour),
		}
	})
	return queueConfig
}
