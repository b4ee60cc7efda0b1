package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// Firebase Config
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Escalation timing
	Escalation EscalationTiming

	// Sweep worker
	SweepInterval time.Duration
	SweepWorkers  int
	TripTimeout   time.Duration

	// Retention
	RetentionDays int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// EscalationTiming holds the evaluator thresholds, in minutes.
type EscalationTiming struct {
	CheckInterval   int
	GracePeriod     int
	EscalationDelay int
}

// SoftAfter is the ping silence (minutes) after which the first soft
// reminder fires, once the trip is overdue.
func (t EscalationTiming) SoftAfter() int {
	return t.CheckInterval + t.GracePeriod
}

func (t EscalationTiming) UrgentAfter() int {
	return 2*t.CheckInterval + t.EscalationDelay
}

func (t EscalationTiming) EmergencyAfter() int {
	return 3*t.CheckInterval + 2*t.EscalationDelay
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/rientro"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-super-secret-jwt-key"),

		// Firebase
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		// Twilio
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		Escalation: EscalationTiming{
			CheckInterval:   getEnvAsInt("CHECK_INTERVAL_MINUTES", 15),
			GracePeriod:     getEnvAsInt("GRACE_PERIOD_MINUTES", 5),
			EscalationDelay: getEnvAsInt("ESCALATION_DELAY_MINUTES", 10),
		},

		SweepInterval: time.Duration(getEnvAsInt("SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
		SweepWorkers:  getEnvAsInt("SWEEP_WORKERS", 8),
		TripTimeout:   time.Duration(getEnvAsInt("TRIP_TIMEOUT_SECONDS", 15)) * time.Second,

		RetentionDays: getEnvAsInt("RETENTION_DAYS", 30),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1)) * time.Minute,
	}
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// Fallback to default config
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	return redis.NewClient(opt)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
