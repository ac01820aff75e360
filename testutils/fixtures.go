package testutils

import (
	"time"

	"github.com/mindmarks/accounts/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Test App",
			URL:  "http://localhost:3000",
		},
		Auth: config.AuthConfig{
			MinLength:  8,
			BcryptCost: bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:     "4a7d1ed414474e4033ac29ccb8653d9b2f0c1a8d9e5b4f6a7c8d9e0f1a2b3c4d",
			Algorithm:     "HS256",
			Issuer:        "mindmarks-accounts",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 720 * time.Hour,
		},
		RefreshToken: config.RefreshTokenConfig{
			CleanupInterval: 0,
		},
		PasswordReset: config.PasswordResetConfig{
			TokenLength:     32,
			Expiry:          time.Hour,
			CleanupInterval: 0,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}
}

var TestPasswords = struct {
	Valid    string
	TooShort string
	Changed  string
}{
	Valid:    "Password123",
	TooShort: "Pass1",
	Changed:  "NewPassword456",
}

var TestUsers = struct {
	ValidUser struct {
		Email    string
		FullName string
		Password string
	}
	InactiveUser struct {
		Email    string
		FullName string
		Password string
	}
}{
	ValidUser: struct {
		Email    string
		FullName string
		Password string
	}{
		Email:    "test@example.com",
		FullName: "Test User",
		Password: "Password123",
	},
	InactiveUser: struct {
		Email    string
		FullName string
		Password string
	}{
		Email:    "inactive@example.com",
		FullName: "Inactive User",
		Password: "Password123",
	},
}
