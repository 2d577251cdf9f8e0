package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sanjbhakta/fintx-surveillance/internal/config"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/http/handler"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/mongodb"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/rabbitmq"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
	"github.com/sanjbhakta/fintx-surveillance/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load(":8095")

	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	mongoClient, err := mongo.Connect(clientOptions)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao criar client MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Erro ao desconectar Mongo")
		}
	}()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("Erro ao pingar MongoDB")
	}
	log.Info().Msg("✅ Conectado ao MongoDB!")

	alertRepo := mongodb.NewAlertRepository(mongoClient, cfg.MongoDatabase)

	client, err := rabbitmq.Connect(rabbitmq.Config{
		URL:            cfg.Broker.URL(),
		ConnectionName: "Compliance_Consumer",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao broker")
	}
	defer func() { _ = client.Close() }()
	log.Info().Msg("✅ Conectado ao broker!")

	client.AddObserver(gateway.BusObserver{
		OnServiceInterrupted: func(cause error) {
			log.Warn().Err(cause).Msg("Serviço interrompido, alertas pausados até reconectar")
		},
		OnReconnected: func() {
			log.Info().Msg("Reconectado, assinaturas restabelecidas")
		},
	})

	supervisor := rabbitmq.NewSupervisor(client, rabbitmq.DefaultRetry())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervisor.Run(ctx)

	go func() {
		router := handler.NewHealthRouter("compliance", client.State)
		if err := http.ListenAndServe(cfg.OpsAddr, router); err != nil {
			log.Error().Err(err).Msg("Falha ao subir endpoint de health")
		}
	}()

	recorder := usecase.NewRecordAlert(alertRepo, cfg.FraudThreshold)

	pattern, err := topic.Pattern(topic.StageComplianceAlert, "go")
	if err != nil {
		log.Fatal().Err(err).Msg("Pattern de assinatura malformado")
	}

	sub, err := client.Subscribe(pattern, recorder.Handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Falha ao assinar o tópico de compliance")
	}

	log.Info().Str("pattern", pattern).Str("ops", cfg.OpsAddr).Msg("🚀 Compliance registrando alertas de fraude")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stopChan:
		log.Info().Msg("Shutting down compliance worker...")
		_ = sub.Unsubscribe()
		cancel()
	case err := <-supervisor.Fatal():
		log.Fatal().Err(err).Msg("🔴 Orçamento de reconexão esgotado, encerrando")
	}
}
