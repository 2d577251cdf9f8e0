package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
)

// GenerateTransactionsUseCase produz transações sintéticas no tópico de
// entrada do pipeline, em rajadas de MessagesPerBurst com uma pausa entre
// rajadas.
type GenerateTransactionsUseCase struct {
	bus          gateway.Bus
	producerKind string

	MessagesPerBurst int
	MessageInterval  time.Duration
	BurstInterval    time.Duration
}

// NewGenerateTransactions cria o gerador com a cadência padrão:
// 5 mensagens a cada 100ms, nova rajada a cada segundo.
func NewGenerateTransactions(bus gateway.Bus, producerKind string) *GenerateTransactionsUseCase {
	return &GenerateTransactionsUseCase{
		bus:              bus,
		producerKind:     producerKind,
		MessagesPerBurst: 5,
		MessageInterval:  100 * time.Millisecond,
		BurstInterval:    time.Second,
	}
}

// Run publica rajadas até o contexto ser cancelado.
func (u *GenerateTransactionsUseCase) Run(ctx context.Context) error {
	for {
		for count := int64(1); count <= int64(u.MessagesPerBurst); count++ {
			if err := u.PublishOne(ctx, count); err != nil {
				return err
			}
			if !sleep(ctx, u.MessageInterval) {
				return ctx.Err()
			}
		}
		if !sleep(ctx, u.BurstInterval) {
			return ctx.Err()
		}
	}
}

// PublishOne gera e publica uma transação com o número de sequência dado.
func (u *GenerateTransactionsUseCase) PublishOne(ctx context.Context, seq int64) error {
	tx := domain.NewRandomTransaction()

	t, err := topic.Build(topic.StageIngress, u.producerKind, seq)
	if err != nil {
		return err
	}

	msg, err := domain.NewTransactionMessage(uuid.NewString(), tx, map[string]string{
		domain.PropApplication: "fintx-surveillance",
		domain.PropOrigin:      "genfintx",
	})
	if err != nil {
		return err
	}

	if err := u.bus.Publish(ctx, t, msg); err != nil {
		return err
	}

	log.Info().
		Str("topic", t).
		Str("message_id", msg.AppMessageID).
		Str("amount", tx.Amount.StringFixed(2)).
		Str("currency", tx.Currency).
		Msg("Transação publicada")
	return nil
}

// sleep espera o intervalo respeitando o cancelamento do contexto.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
