package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Checkin  CheckinServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Payment  PaymentConfig
	Invites  InviteConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type CheckinServerConfig struct {
	Port string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	InviteGenerated  string
	DeliveryRequests string
	InvitePaid       string
	InviteCheckedIn  string
	InviteCancelled  string
	PaymentConfirmed string
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// PaymentConfig holds the closed fee schedule: payment method identifier to
// {fixed, percentage}. Validated at startup, never looked up by untyped key
// at call sites.
type PaymentConfig struct {
	Fees map[string]FeeSchedule
}

type FeeSchedule struct {
	Fixed      float64
	Percentage float64
}

type InviteConfig struct {
	// PaymentWindow is how long a generated/sent invite may stay unpaid
	// before the expiry sweep retires it.
	PaymentWindow time.Duration
	// QRSecret encrypts the QR payload bound to each invite.
	QRSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8085"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Checkin: CheckinServerConfig{
			Port: getEnv("CHECKIN_PORT", ":8086"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "invite-service-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				InviteGenerated:  getEnv("KAFKA_TOPIC_GENERATED", "invites.generated"),
				DeliveryRequests: getEnv("KAFKA_TOPIC_DELIVERY", "invites.delivery.requests"),
				InvitePaid:       getEnv("KAFKA_TOPIC_PAID", "invites.paid"),
				InviteCheckedIn:  getEnv("KAFKA_TOPIC_CHECKEDIN", "invites.checkedin"),
				InviteCancelled:  getEnv("KAFKA_TOPIC_CANCELLED", "invites.cancelled"),
				PaymentConfirmed: getEnv("KAFKA_TOPIC_PAYMENT_CONFIRMED", "payments.confirmed"),
			},
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Payment: PaymentConfig{
			Fees: map[string]FeeSchedule{
				"pix":         {Fixed: getEnvFloat("FEE_PIX_FIXED", 0.40), Percentage: getEnvFloat("FEE_PIX_PERCENT", 0)},
				"credit_card": {Fixed: getEnvFloat("FEE_CREDIT_FIXED", 0.39), Percentage: getEnvFloat("FEE_CREDIT_PERCENT", 3.99)},
				"debit_card":  {Fixed: getEnvFloat("FEE_DEBIT_FIXED", 0.39), Percentage: getEnvFloat("FEE_DEBIT_PERCENT", 2.99)},
				"cash":        {Fixed: 0, Percentage: 0},
			},
		},
		Invites: InviteConfig{
			PaymentWindow: time.Duration(getEnvInt("PAYMENT_WINDOW_HOURS", 48)) * time.Hour,
			QRSecret:      getEnv("QR_SECRET_KEY", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
