package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/console/internal/storage"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	ControlPort    string
	AllowedOrigins []string
	LogLevel       string

	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Call simulation
	PollInterval    time.Duration
	CallProbability float64
	RingTimeout     time.Duration
	AutoGenerate    bool

	// ConsoleIdleTimeout bounds how long an untouched, idle agent console is kept
	ConsoleIdleTimeout time.Duration

	// Identity
	DefaultAgentID   string
	DefaultAgentName string
	SkipAuth         bool
	VerifySignature  bool
	JWTSecret        string
	OIDCIssuer       string

	Dynamo storage.DynamoConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		ControlPort:      getEnv("CONTROL_PORT", "8081"),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DefaultAgentID:   getEnv("DEFAULT_AGENT_ID", "dev-agent"),
		DefaultAgentName: getEnv("DEFAULT_AGENT_NAME", "Dev Agent"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		OIDCIssuer:       os.Getenv("OIDC_ISSUER"),
		Dynamo: storage.DynamoConfig{
			Mode:             storage.ParseDynamoMode(getEnv("DYNAMO_MODE", "none")),
			Endpoint:         getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
			Region:           getEnv("DYNAMO_REGION", "eu-central-1"),
			CallRecordsTable: getEnv("DYNAMO_CALL_RECORDS_TABLE", "console-call-records"),
		},
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	pollInterval, err := strconv.Atoi(getEnv("POLL_INTERVAL", "30"))
	if err != nil || pollInterval <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %q", getEnv("POLL_INTERVAL", "30"))
	}
	config.PollInterval = time.Duration(pollInterval) * time.Second

	config.CallProbability, err = strconv.ParseFloat(getEnv("CALL_PROBABILITY", "0.3"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CALL_PROBABILITY: %w", err)
	}
	if config.CallProbability <= 0 || config.CallProbability > 1 {
		return nil, fmt.Errorf("invalid CALL_PROBABILITY: %v must be in (0, 1]", config.CallProbability)
	}

	ringTimeout, err := strconv.Atoi(getEnv("RING_TIMEOUT", "30"))
	if err != nil || ringTimeout <= 0 {
		return nil, fmt.Errorf("invalid RING_TIMEOUT: %q", getEnv("RING_TIMEOUT", "30"))
	}
	config.RingTimeout = time.Duration(ringTimeout) * time.Second

	idleTimeout, err := strconv.Atoi(getEnv("CONSOLE_IDLE_TIMEOUT", "3600"))
	if err != nil || idleTimeout < 0 {
		return nil, fmt.Errorf("invalid CONSOLE_IDLE_TIMEOUT: %q", getEnv("CONSOLE_IDLE_TIMEOUT", "3600"))
	}
	config.ConsoleIdleTimeout = time.Duration(idleTimeout) * time.Second

	if config.AutoGenerate, err = getBool("AUTO_GENERATE", true); err != nil {
		return nil, err
	}
	if config.SkipAuth, err = getBool("SKIP_AUTH", false); err != nil {
		return nil, err
	}
	if config.VerifySignature, err = getBool("VERIFY_JWT_SIGNATURE", false); err != nil {
		return nil, err
	}
	// Outside development, signatures are always verified
	if env := os.Getenv("ENV"); env != "" && env != "development" {
		config.VerifySignature = true
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
