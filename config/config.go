package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port    string `mapstructure:"port"`
		Env     string `mapstructure:"env"`
		BaseURL string `mapstructure:"baseUrl"` // Базовый URL платформы (ссылки на дашборд донора в письмах)
	} `mapstructure:"app"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Stripe struct {
		SecretKey     string `mapstructure:"secretKey"`
		WebhookSecret string `mapstructure:"webhookSecret"`
	} `mapstructure:"stripe"`
	Email struct {
		SendGridAPIKey string `mapstructure:"sendGridApiKey"`
		FromName       string `mapstructure:"fromName"`
		FromEmail      string `mapstructure:"fromEmail"`
	} `mapstructure:"email"`
	GHL struct {
		BaseURL string `mapstructure:"baseUrl"`
		APIKey  string `mapstructure:"apiKey"`
	} `mapstructure:"ghl"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
}

// LoadConfig загружает конфигурацию из файла и переменных окружения.
// Переменные окружения имеют приоритет над значениями из config.yaml.
func LoadConfig(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env опционален: в контейнере конфигурация приходит из окружения
		_ = godotenv.Load(path)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv() // Чтение переменных окружения

	if err := viper.ReadInConfig(); err != nil {
		// Отсутствие config.yaml не фатально, если всё задано через окружение
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyEnvOverrides(&config)

	return &config, nil
}

// applyEnvOverrides накладывает значения из переменных окружения поверх файла.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"APP_PORT":              &cfg.App.Port,
		"APP_ENV":               &cfg.App.Env,
		"BASE_URL":              &cfg.App.BaseURL,
		"DATABASE_DSN":          &cfg.Database.DSN,
		"REDIS_ADDR":            &cfg.Redis.Addr,
		"STRIPE_SECRET_KEY":     &cfg.Stripe.SecretKey,
		"STRIPE_WEBHOOK_SECRET": &cfg.Stripe.WebhookSecret,
		"SENDGRID_API_KEY":      &cfg.Email.SendGridAPIKey,
		"GHL_API_KEY":           &cfg.GHL.APIKey,
		"JWT_SECRET":            &cfg.Auth.JWTSecret,
	}
	for env, target := range overrides {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}
