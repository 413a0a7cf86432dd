package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string
	// VerificationBaseURL prefixes certificate verification links,
	// e.g. https://verify.example.com/certificates/.
	VerificationBaseURL string
}

// RulePackCacheTTL bounds staleness of cached rule pack resolutions. Writes
// invalidate eagerly; the TTL is the backstop.
var RulePackCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CPD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	verifyBase := os.Getenv("CPD_VERIFICATION_BASE_URL")
	if verifyBase == "" {
		verifyBase = "https://verify.cpdtrack.dev/certificates/"
	}

	var brokers []string
	if raw := os.Getenv("CPD_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:                addr,
		DatabaseURL:         os.Getenv("CPD_DATABASE_URL"),
		RedisURL:            os.Getenv("CPD_REDIS_URL"),
		KafkaBrokers:        brokers,
		JWTSigningKey:       jwtSigningKey,
		VerificationBaseURL: verifyBase,
	}
}
