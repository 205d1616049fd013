package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     int    `mapstructure:"PORT"`
	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	// Mailer selects the outbound email transport: "smtp", "mailersend"
	// or "log" (local development, codes only end up in the log).
	Mailer string `mapstructure:"MAILER"`

	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         int    `mapstructure:"SMTP_PORT"`
	SMTPUsername     string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string `mapstructure:"SMTP_PASSWORD"`
	SenderEmail      string `mapstructure:"SENDER_EMAIL"`
	SenderName       string `mapstructure:"SENDER_NAME"`
	MailerSendAPIKey string `mapstructure:"MAILERSEND_API_KEY"`

	SuggestAPIURL string `mapstructure:"SUGGEST_API_URL"`
	SuggestAPIKey string `mapstructure:"SUGGEST_API_KEY"`
	SuggestModel  string `mapstructure:"SUGGEST_MODEL"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", 8080)
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "whisperbox")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("JWT_SECRET", "your-secret-key")
	viper.SetDefault("TOKEN_TTL", "24h")
	viper.SetDefault("MAILER", "log")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SENDER_NAME", "Whisperbox")
	viper.SetDefault("SUGGEST_API_URL", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("SUGGEST_MODEL", "gpt-4.1")
	viper.SetDefault("METRICS_ENABLED", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
