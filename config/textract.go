package config

import (
	"sync"
)

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float64
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		loadEnv()
		textractConfig = &TextractConfig{
			Region:        getEnv("AWS_REGION", "us-east-1"),
			Endpoint:      getEnv("AWS_ENDPOINT", ""),
			AccessKey:     getEnv("AWS_ACCESS_KEY", ""),
			SecretKey:     getEnv("AWS_SECRET_KEY", ""),
			MinConfidence: float64(getEnvInt("TEXTRACT_MIN_CONFIDENCE", 80)),
		}
	})
	return textractConfig
}
