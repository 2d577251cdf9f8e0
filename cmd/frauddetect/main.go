package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/config"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/http/handler"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/rabbitmq"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
	"github.com/sanjbhakta/fintx-surveillance/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load(":8093")

	client, err := rabbitmq.Connect(rabbitmq.Config{
		URL:            cfg.Broker.URL(),
		ConnectionName: "FraudDetect_Classifier",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao broker")
	}
	defer func() { _ = client.Close() }()
	log.Info().Msg("✅ Conectado ao broker!")

	client.AddObserver(gateway.BusObserver{
		OnServiceInterrupted: func(cause error) {
			log.Warn().Err(cause).Msg("Serviço interrompido, triagem pausada até reconectar")
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
		router := handler.NewHealthRouter("frauddetect", client.State)
		if err := http.ListenAndServe(cfg.OpsAddr, router); err != nil {
			log.Error().Err(err).Msg("Falha ao subir endpoint de health")
		}
	}()

	detector := usecase.NewDetectFraud(client, "go", cfg.FraudThreshold)

	pattern, err := topic.Pattern(topic.StageFraudDetect, "go")
	if err != nil {
		log.Fatal().Err(err).Msg("Pattern de assinatura malformado")
	}

	sub, err := client.Subscribe(pattern, detector.Handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Falha ao assinar o tópico de fraude")
	}

	log.Info().
		Str("pattern", pattern).
		Str("threshold", cfg.FraudThreshold.StringFixed(2)).
		Str("ops", cfg.OpsAddr).
		Msg("🚀 FraudDetect analisando transações")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stopChan:
		log.Info().Msg("Shutting down classifier...")
		_ = sub.Unsubscribe()
		cancel()
	case err := <-supervisor.Fatal():
		log.Fatal().Err(err).Msg("🔴 Orçamento de reconexão esgotado, encerrando")
	}
}
