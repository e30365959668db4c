// Package config provides runtime configuration for the services.
package config

import (
	"os"
	"strconv"
)

// Config holds the configuration surface shared by the three services.
// Every field has a development default; only the JWT key should really be
// overridden outside local runs.
type Config struct {
	GatewayAddr   string
	InventoryPort int
	SalesPort     int

	JWTKey      string
	JWTIssuer   string
	JWTAudience string

	AdminUser     string
	AdminPassword string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RabbitHost     string
	RabbitPort     int
	RabbitUser     string
	RabbitPassword string

	RedisHost string
	RedisPort int

	ConsulHost string
	ConsulPort int

	InventoryBaseURL string
	SalesBaseURL     string

	RateLimitRPS   float64
	RateLimitBurst int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		GatewayAddr:   getenv("GATEWAY_ADDR", ":8080"),
		InventoryPort: atoienv("INVENTORY_PORT", 8081),
		SalesPort:     atoienv("SALES_PORT", 8082),

		JWTKey:      getenv("JWT_KEY", "super_secret_dev_key_please_change"),
		JWTIssuer:   getenv("JWT_ISSUER", "stockgate"),
		JWTAudience: getenv("JWT_AUDIENCE", "stockgate-services"),

		AdminUser:     getenv("ADMIN_USER", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin"),

		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     atoienv("POSTGRES_PORT", 5432),
		PostgresUser:     getenv("POSTGRES_USER", "stockgate"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "stockgate123"),
		PostgresDB:       getenv("POSTGRES_DB", "stockgate"),

		RabbitHost:     getenv("RABBITMQ_HOST", "localhost"),
		RabbitPort:     atoienv("RABBITMQ_PORT", 5672),
		RabbitUser:     getenv("RABBITMQ_USER", "guest"),
		RabbitPassword: getenv("RABBITMQ_PASSWORD", "guest"),

		RedisHost: getenv("REDIS_HOST", "localhost"),
		RedisPort: atoienv("REDIS_PORT", 6379),

		ConsulHost: getenv("CONSUL_HOST", "localhost"),
		ConsulPort: atoienv("CONSUL_PORT", 8500),

		InventoryBaseURL: getenv("INVENTORY_BASE_URL", "http://localhost:8081"),
		SalesBaseURL:     getenv("SALES_BASE_URL", "http://localhost:8082"),

		RateLimitRPS:   floatenv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: atoienv("RATE_LIMIT_BURST", 40),
	}
}
