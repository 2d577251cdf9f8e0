package usecase

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
)

// DefaultFraudThreshold é o limiar padrão, na moeda pós-conversão.
var DefaultFraudThreshold = decimal.NewFromInt(900)

// DetectFraudUseCase aplica a regra de limiar por transação e roteia:
// suspeita vai para o tópico de compliance (e para de avançar no pipeline),
// liberada vai para o tópico de settlement.
//
// A decisão é pura e síncrona por mensagem. Sem correlação entre
// transações: scoring por velocidade/padrão está explicitamente fora daqui.
type DetectFraudUseCase struct {
	bus          gateway.Bus
	producerKind string
	threshold    decimal.Decimal
	seq          atomic.Int64
}

func NewDetectFraud(bus gateway.Bus, producerKind string, threshold decimal.Decimal) *DetectFraudUseCase {
	return &DetectFraudUseCase{
		bus:          bus,
		producerKind: producerKind,
		threshold:    threshold,
	}
}

// Classify é a regra em si: amount >= threshold -> Suspicious.
// O limite exato (amount == threshold) classifica como suspeita.
func (u *DetectFraudUseCase) Classify(tx domain.Transaction) domain.Classification {
	if tx.Amount.GreaterThanOrEqual(u.threshold) {
		return domain.Suspicious
	}
	return domain.Clear
}

// Handle é o message handler da assinatura do estágio.
func (u *DetectFraudUseCase) Handle(ctx context.Context, msg domain.Message) error {
	tx, err := domain.DecodeTransaction(msg)
	if err != nil {
		return err
	}

	verdict := u.Classify(tx)

	stage := topic.StageSettle
	if verdict == domain.Suspicious {
		stage = topic.StageComplianceAlert
	}

	t, err := topic.Build(stage, u.producerKind, u.seq.Add(1))
	if err != nil {
		return err
	}

	out, err := domain.NewTransactionMessage(msg.AppMessageID, tx, msg.Properties)
	if err != nil {
		return err
	}

	if err := u.bus.Publish(ctx, t, out); err != nil {
		return err
	}

	if verdict == domain.Suspicious {
		log.Warn().
			Str("message_id", msg.AppMessageID).
			Str("amount", tx.Amount.StringFixed(2)).
			Str("currency", tx.Currency).
			Msg("🚨 Fraude detectada, enviada ao compliance officer")
	} else {
		log.Info().
			Str("message_id", msg.AppMessageID).
			Str("amount", tx.Amount.StringFixed(2)).
			Msg("Sem fraude, liberada para settlement")
	}
	return nil
}
