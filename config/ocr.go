package config

import (
	"sync"
)

var (
	ocrOnce   sync.Once
	ocrConfig *OCRConfig
)

// OCRConfig configures page rendering and recognition.
type OCRConfig struct {
	// Engine is "tesseract" or "textract".
	Engine       string
	Language     string
	DPI          int
	PdftoppmPath string
	Preprocess   bool
}

func GetOCRConfig() *OCRConfig {
	ocrOnce.Do(func() {
		loadEnv()
		ocrConfig = &OCRConfig{
			Engine:       getEnv("OCR_ENGINE", "tesseract"),
			Language:     getEnv("OCR_LANGUAGE", "eng"),
			DPI:          getEnvInt("OCR_DPI", 300),
			PdftoppmPath: getEnv("PDFTOPPM_PATH", "pdftoppm"),
			Preprocess:   getEnvBool("OCR_PREPROCESS", true),
		}
	})
	return ocrConfig
}
