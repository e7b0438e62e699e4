package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tieubaoca/docrag-be/types"
)

type Config struct {
	Port                string                 `mapstructure:"port"`
	APIKey              string                 `mapstructure:"API_KEY"`
	AIEndpoint          string                 `mapstructure:"ai_endpoint"`
	Model               string                 `mapstructure:"model"`
	OpenAIAPIKey        string                 `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys       []string               `mapstructure:"gemini_api_keys"`
	UploadDir           string                 `mapstructure:"upload_dir"`
	Processing          types.ProcessingConfig `mapstructure:"processing"`
	WeaviateStoreConfig WeaviateStoreConfig    `mapstructure:"weaviate_store_config"`
}

type WeaviateStoreConfig struct {
	Host         string       `mapstructure:"host"`
	APIKey       string       `mapstructure:"WEAVIATE_APIKEY"` // Changed to match env var
	Text2Vec     string       `mapstructure:"text2vec"`
	ModuleConfig ModuleConfig `mapstructure:"module_config"`
}

type ModuleConfig map[string]interface{}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set up Viper to read from config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	// Processing defaults; the file only needs to override what differs.
	v.SetDefault("processing.chunk_size", types.DefaultProcessingConfig.ChunkSize)
	v.SetDefault("processing.chunk_overlap", types.DefaultProcessingConfig.ChunkOverlap)
	v.SetDefault("processing.ocr_lang", types.DefaultProcessingConfig.OCRLang)
	v.SetDefault("processing.dpi", types.DefaultProcessingConfig.DPI)
	v.SetDefault("processing.enable_ocr", types.DefaultProcessingConfig.EnableOCR)
	v.SetDefault("processing.enable_image_extraction", types.DefaultProcessingConfig.EnableImageExtraction)
	v.SetDefault("processing.max_workers", types.DefaultProcessingConfig.MaxWorkers)
	v.SetDefault("processing.ocr_workers", types.DefaultProcessingConfig.OCRWorkers)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")
	v.BindEnv("API_KEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Invalid processing settings must fail at load, not at first use.
	if err := config.Processing.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
