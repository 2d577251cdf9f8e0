// Package config carrega os parâmetros dos binários do pipeline a partir do
// ambiente (ou de um .env em dev local). Credenciais são strings opacas:
// formato de arquivo e bootstrap ficam fora do core.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Broker são os parâmetros de conexão com o serviço de mensageria.
type Broker struct {
	Host     string
	VPN      string // virtual namespace no broker (vhost)
	Username string
	Password string
}

// URL monta a URL AMQP da conexão.
func (b Broker) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:5672/%s", b.Username, b.Password, b.Host, b.VPN)
}

// Config agrega tudo que os binários precisam no boot.
type Config struct {
	Broker         Broker
	RedisAddr      string
	MongoURI       string
	MongoDatabase  string
	PostgresURL    string
	FraudThreshold decimal.Decimal
	FXRate         decimal.Decimal
	OpsAddr        string
}

// Load lê o ambiente com fallbacks de dev local.
// O erro do godotenv é ignorado de propósito: em produção (Docker/K8s)
// não usamos arquivo .env, usamos variáveis reais do sistema.
func Load(defaultOpsAddr string) Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	cfg := Config{
		Broker: Broker{
			Host:     getenv("BROKER_HOST", "localhost"),
			VPN:      getenv("BROKER_VPN", ""),
			Username: getenv("BROKER_USERNAME", "guest"),
			Password: getenv("BROKER_PASSWORD", "guest"),
		},
		RedisAddr:      getenv("REDIS_HOST", "localhost") + ":6379",
		MongoDatabase:  getenv("MONGO_DB", "fintx_compliance"),
		FraudThreshold: getenvDecimal("FRAUD_THRESHOLD", decimal.NewFromInt(900)),
		FXRate:         getenvDecimal("FX_RATE_EUR_USD", decimal.NewFromFloat(1.2)),
		OpsAddr:        getenv("OPS_ADDR", defaultOpsAddr),
	}

	mongoUser := getenv("MONGO_USER", "root")
	mongoPass := getenv("MONGO_PASS", "root")
	mongoHost := getenv("MONGO_HOST", "localhost")
	cfg.MongoURI = "mongodb://" + mongoUser + ":" + mongoPass + "@" + mongoHost + ":27017"

	dbUser := getenv("DB_USER", "fintx")
	dbPass := getenv("DB_PASSWORD", "secret123")
	dbHost := getenv("DB_HOST", "localhost")
	dbName := getenv("DB_NAME", "fintx_settlement")
	cfg.PostgresURL = fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable", dbUser, dbPass, dbHost, dbName)

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Valor decimal inválido, usando default")
		return fallback
	}
	return d
}
