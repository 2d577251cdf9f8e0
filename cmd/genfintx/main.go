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
	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/http/handler"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/rabbitmq"
	"github.com/sanjbhakta/fintx-surveillance/internal/usecase"
)

func main() {
	// Configuração de Logs (Zerolog - estruturado e rápido)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load(":8091")

	client, err := rabbitmq.Connect(rabbitmq.Config{
		URL:            cfg.Broker.URL(),
		ConnectionName: "GenFinTX_Publisher",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Não foi possível conectar ao broker")
	}
	defer func() { _ = client.Close() }()
	log.Info().Msg("✅ Conectado ao broker!")

	// Observer do ciclo de vida: o gerador segue publicando durante a
	// degradação, mas queremos as perdas visíveis no log.
	client.AddObserver(gateway.BusObserver{
		OnServiceInterrupted: func(cause error) {
			log.Warn().Err(cause).Msg("Serviço interrompido, publicações vão falhar até reconectar")
		},
		OnReconnected: func() {
			log.Info().Msg("Reconectado, fluxo de publicação normalizado")
		},
		OnPublishFailure: func(perr *domain.PublishError) {
			log.Warn().Str("message_id", perr.MessageID).Msg("Transação perdida durante a degradação")
		},
	})

	supervisor := rabbitmq.NewSupervisor(client, rabbitmq.DefaultRetry())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go supervisor.Run(ctx)

	// Health check (para o Docker saber se estamos vivos)
	go func() {
		router := handler.NewHealthRouter("genfintx", client.State)
		if err := http.ListenAndServe(cfg.OpsAddr, router); err != nil {
			log.Error().Err(err).Msg("Falha ao subir endpoint de health")
		}
	}()

	generator := usecase.NewGenerateTransactions(client, "go")

	genDone := make(chan error, 1)
	go func() { genDone <- generator.Run(ctx) }()

	log.Info().Str("ops", cfg.OpsAddr).Msg("🚀 GenFinTX publicando transações sintéticas")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stopChan:
		log.Info().Msg("Shutting down generator...")
		cancel()
		<-genDone // espera a rajada em andamento terminar antes de fechar o publisher
	case err := <-supervisor.Fatal():
		log.Fatal().Err(err).Msg("🔴 Orçamento de reconexão esgotado, encerrando")
	}
}
