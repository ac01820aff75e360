package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	Log           LogConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	JWT           JWTConfig
	RefreshToken  RefreshTokenConfig
	PasswordReset PasswordResetConfig
	Mail          MailConfig
}

type AppConfig struct {
	Name string `env:"APP_NAME" envDefault:"Mindmarks"`
	URL  string `env:"APP_URL" envDefault:"http://localhost:3000"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DATABASE_DSN" envDefault:"accounts.db"`
	AutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`
}

type AuthConfig struct {
	MinLength            int  `env:"AUTH_MIN_LENGTH" envDefault:"8"`
	BcryptCost           int  `env:"AUTH_BCRYPT_COST" envDefault:"10"`
	ForceFallbackHashing bool `env:"AUTH_FORCE_FALLBACK_HASHING" envDefault:"false"`
}

type JWTConfig struct {
	SecretKey     string        `env:"JWT_SECRET_KEY"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"Mindmarks"`
	Algorithm     string        `env:"JWT_ALGORITHM" envDefault:"HS256"`
	AccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"24h"`
	RefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"720h"`
}

type RefreshTokenConfig struct {
	CleanupInterval time.Duration `env:"REFRESH_TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`
}

type PasswordResetConfig struct {
	TokenLength     int           `env:"PASSWORD_RESET_TOKEN_LENGTH" envDefault:"32"`
	Expiry          time.Duration `env:"PASSWORD_RESET_EXPIRY" envDefault:"1h"`
	CleanupInterval time.Duration `env:"PASSWORD_RESET_CLEANUP_INTERVAL" envDefault:"1h"`
}

type MailConfig struct {
	Host         string `env:"MAIL_HOST"`
	Port         int    `env:"MAIL_PORT" envDefault:"587"`
	Username     string `env:"MAIL_USERNAME"`
	Password     string `env:"MAIL_PASSWORD"`
	Encryption   string `env:"MAIL_ENCRYPTION" envDefault:"starttls"`
	FromAddress  string `env:"MAIL_FROM_ADDRESS"`
	FromName     string `env:"MAIL_FROM_NAME" envDefault:"Mindmarks"`
	TemplatesDir string `env:"MAIL_TEMPLATES_DIR"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return validateConfig(c)
	}

	return nil
}

func validateConfig(cfg *Config) error {
	if err := validateJWTConfig(&cfg.JWT); err != nil {
		return err
	}

	if err := validatePasswordResetConfig(&cfg.PasswordReset); err != nil {
		return err
	}

	return nil
}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("JWT secret key must be at least 32 characters long")
	}

	weakPatterns := []string{"password", "secret", "test", "example", "default", "change"}
	lowerKey := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakPatterns {
		if strings.Contains(lowerKey, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns")
		}
	}

	if cfg.AccessExpiry <= 0 {
		return fmt.Errorf("JWT access token expiry must be positive")
	}

	if cfg.RefreshExpiry <= cfg.AccessExpiry {
		return fmt.Errorf("JWT refresh token expiry must exceed access token expiry")
	}

	return nil
}

func validatePasswordResetConfig(cfg *PasswordResetConfig) error {
	if cfg.TokenLength < 16 {
		return fmt.Errorf("password reset token length must be at least 16 bytes")
	}

	if cfg.TokenLength > 128 {
		return fmt.Errorf("password reset token length cannot exceed 128 bytes")
	}

	if cfg.Expiry <= 0 {
		return fmt.Errorf("password reset token expiry must be positive")
	}

	return nil
}
