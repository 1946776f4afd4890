package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"cardroom/domain/utils"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port int

	// Database configuration
	DatabaseURL string

	// Payment gateway configuration
	GatewayURL         string
	GatewayAPIKey      string
	GatewaySendTimeout time.Duration

	// Reconciliation configuration
	ReconcileInterval time.Duration
	ReconcileMinAge   time.Duration

	// Fees in USDC cents, parsed from decimal env strings
	RegistrationFee int64
	GameFee         int64
	TournamentFee   int64

	// Auth configuration
	JWTSecret string
	TokenTTL  time.Duration

	// NATS configuration; empty disables event publishing
	NATSServers string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		Port:        8080,
		DatabaseURL: os.Getenv("DATABASE_URL"),

		GatewayURL:         os.Getenv("GATEWAY_URL"),
		GatewayAPIKey:      os.Getenv("GATEWAY_API_KEY"),
		GatewaySendTimeout: 10 * time.Second,

		ReconcileInterval: time.Minute,
		ReconcileMinAge:   2 * time.Minute,

		// Defaults: 20.00 registration, 0.03 per game, 1.00 per tournament
		RegistrationFee: 2000,
		GameFee:         3,
		TournamentFee:   100,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  24 * time.Hour,

		NATSServers: os.Getenv("NATS_SERVERS"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if port := os.Getenv("PORT"); port != "" {
		parsed, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = parsed
	}

	for _, fee := range []struct {
		env  string
		dest *int64
	}{
		{"REGISTRATION_FEE", &config.RegistrationFee},
		{"GAME_FEE", &config.GameFee},
		{"TOURNAMENT_FEE", &config.TournamentFee},
	} {
		if raw := os.Getenv(fee.env); raw != "" {
			cents, err := utils.ParseUSDC(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", fee.env, err)
			}
			if cents < 0 {
				return nil, fmt.Errorf("invalid %s: must not be negative", fee.env)
			}
			*fee.dest = cents
		}
	}

	if timeout := os.Getenv("GATEWAY_SEND_TIMEOUT"); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid GATEWAY_SEND_TIMEOUT: %w", err)
		}
		config.GatewaySendTimeout = parsed
	}
	if interval := os.Getenv("RECONCILE_INTERVAL"); interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
		}
		config.ReconcileInterval = parsed
	}
	if minAge := os.Getenv("RECONCILE_MIN_AGE"); minAge != "" {
		parsed, err := time.ParseDuration(minAge)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONCILE_MIN_AGE: %w", err)
		}
		config.ReconcileMinAge = parsed
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		config.TokenTTL = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.GatewayURL == "" {
			return nil, fmt.Errorf("GATEWAY_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	}

	return config, nil
}
