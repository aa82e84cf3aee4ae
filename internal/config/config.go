package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"emotion-diary/internal/domain"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	AnalysisConfig

	PersistWorkers   int           `env:"PERSIST_WORKERS" envDefault:"2"`
	PersistQueueSize int           `env:"PERSIST_QUEUE_SIZE" envDefault:"256"`
	PersistTimeout   time.Duration `env:"PERSIST_TIMEOUT" envDefault:"10s"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`
}

// AnalysisConfig agrupa lo necesario para analizar un texto o audio sin base de datos.
type AnalysisConfig struct {
	DiaryVariant string `env:"DIARY_VARIANT" envDefault:"coordinate"`
	ColorSource  string `env:"COLOR_SOURCE" envDefault:"model"`

	LLMProvider string `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMAPIKey   string `env:"LLM_API_KEY"`
	LLMBaseURL  string `env:"LLM_BASE_URL"`
	LLMModel    string `env:"LLM_MODEL"`
	GCPProject  string `env:"GCP_PROJECT"`
	GCPLocation string `env:"GCP_LOCATION" envDefault:"us-central1"`

	STTProvider       string        `env:"STT_PROVIDER" envDefault:"gemini"`
	STTModel          string        `env:"STT_MODEL"`
	STTLanguage       string        `env:"STT_LANGUAGE" envDefault:"ja-JP"`
	TranscribeTimeout time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"30s"`
	MaxAudioBytes     int64         `env:"MAX_AUDIO_BYTES" envDefault:"20971520"`
}

// Valores aceptados para COLOR_SOURCE.
const (
	ColorSourceModel   = "model"
	ColorSourcePalette = "palette"
)

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAnalysisConfig carga solo la parte de analisis; la usa el CLI.
func LoadAnalysisConfig() (*AnalysisConfig, error) {
	var cfg AnalysisConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rechaza combinaciones que el servicio no sabe atender.
func (c *Config) Validate() error {
	if err := c.AnalysisConfig.Validate(); err != nil {
		return err
	}
	if c.PersistWorkers <= 0 {
		return fmt.Errorf("PERSIST_WORKERS must be positive")
	}
	return nil
}

func (c *AnalysisConfig) Validate() error {
	if _, err := domain.ParseVariant(c.DiaryVariant); err != nil {
		return err
	}
	switch c.ColorSource {
	case ColorSourceModel, ColorSourcePalette:
	default:
		return fmt.Errorf("unknown color source %q", c.ColorSource)
	}
	if c.ColorSource == ColorSourcePalette && c.Variant() != domain.VariantCoordinate {
		return fmt.Errorf("color source %q requires the coordinate variant", c.ColorSource)
	}
	if c.MaxAudioBytes <= 0 {
		return fmt.Errorf("MAX_AUDIO_BYTES must be positive")
	}
	return nil
}

// Variant devuelve la variante ya validada.
func (c *AnalysisConfig) Variant() domain.Variant {
	v, _ := domain.ParseVariant(c.DiaryVariant)
	return v
}
