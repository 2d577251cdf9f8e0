package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/config"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/http/handler"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/postgres"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/rabbitmq"
	redisInfra "github.com/sanjbhakta/fintx-surveillance/internal/infra/redis"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
	"github.com/sanjbhakta/fintx-surveillance/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load(":8094")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao banco de dados")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Banco de dados não está respondendo")
	}
	log.Info().Msg("✅ Conectado ao PostgreSQL com sucesso!")

	redisClient := goredis.NewClient(&goredis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Sem Redis o dedup cai para o conflito de chave no ledger.
		log.Warn().Err(err).Msg("Não foi possível conectar ao Redis (dedup degradado)")
	} else {
		log.Info().Msg("✅ Conectado ao Redis!")
	}

	client, err := rabbitmq.Connect(rabbitmq.Config{
		URL:            cfg.Broker.URL(),
		ConnectionName: "ClearSettle_Consumer",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao broker")
	}
	defer func() { _ = client.Close() }()
	log.Info().Msg("✅ Conectado ao broker!")

	client.AddObserver(gateway.BusObserver{
		OnServiceInterrupted: func(cause error) {
			log.Warn().Err(cause).Msg("Serviço interrompido, settlement pausado até reconectar")
		},
		OnReconnected: func() {
			// Reconectado: entregas duplicadas podem aparecer agora,
			// o dedup por message id absorve.
			log.Info().Msg("Reconectado, assinaturas restabelecidas")
		},
	})

	supervisor := rabbitmq.NewSupervisor(client, rabbitmq.DefaultRetry())
	go supervisor.Run(ctx)

	go func() {
		router := handler.NewHealthRouter("clearsettle", client.State)
		if err := http.ListenAndServe(cfg.OpsAddr, router); err != nil {
			log.Error().Err(err).Msg("Falha ao subir endpoint de health")
		}
	}()

	dedupRepo := redisInfra.NewDedupRepository(redisClient)
	ledger := postgres.NewSettlementLedger(dbPool)
	uow := postgres.NewUow(dbPool)
	settler := usecase.NewSettle(dedupRepo, ledger, uow)

	pattern, err := topic.Pattern(topic.StageSettle, "go")
	if err != nil {
		log.Fatal().Err(err).Msg("Pattern de assinatura malformado")
	}

	sub, err := client.Subscribe(pattern, settler.Handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Falha ao assinar o tópico de settlement")
	}

	log.Info().Str("pattern", pattern).Str("ops", cfg.OpsAddr).Msg("🚀 ClearSettle reconciliando transações")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stopChan:
		log.Info().Msg("Shutting down settlement consumer...")
		_ = sub.Unsubscribe()
		cancel()
	case err := <-supervisor.Fatal():
		log.Fatal().Err(err).Msg("🔴 Orçamento de reconexão esgotado, encerrando")
	}
}
