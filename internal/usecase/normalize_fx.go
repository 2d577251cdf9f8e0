package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
)

// StaticRates é a tabela fixa de taxas usada pelo pipeline.
// Chave no formato "EUR/USD".
type StaticRates map[string]decimal.Decimal

// DefaultRates é a conversão padrão do pipeline: EUR -> USD a 1.2.
func DefaultRates() StaticRates {
	return StaticRates{"EUR/USD": decimal.NewFromFloat(1.2)}
}

func (r StaticRates) Rate(from, to string) (decimal.Decimal, error) {
	rate, ok := r[from+"/"+to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s", domain.ErrUnknownCurrency, from, to)
	}
	return rate, nil
}

// NormalizeFXUseCase consome transações cruas, converte o valor para a
// moeda alvo e republica no tópico do estágio de fraude.
//
// Sem estado entre mensagens, exceto o contador de sequência: process-local,
// estritamente crescente, zerado a cada restart (sem garantia de
// continuidade entre execuções).
type NormalizeFXUseCase struct {
	rates          gateway.RateProvider
	bus            gateway.Bus
	producerKind   string
	targetCurrency string
	seq            atomic.Int64
}

// NewNormalizeFX cria o normalizador. Moeda alvo do pipeline: USD.
func NewNormalizeFX(rates gateway.RateProvider, bus gateway.Bus, producerKind string) *NormalizeFXUseCase {
	return &NormalizeFXUseCase{
		rates:          rates,
		bus:            bus,
		producerKind:   producerKind,
		targetCurrency: "USD",
	}
}

// Convert aplica a taxa e devolve a transação nova com amount E currency
// atualizados juntos — nunca um registro com valor convertido e etiqueta
// da moeda antiga.
func (u *NormalizeFXUseCase) Convert(tx domain.Transaction) (domain.Transaction, error) {
	rate, err := u.rates.Rate(tx.Currency, u.targetCurrency)
	if err != nil {
		return domain.Transaction{}, err
	}
	converted := tx.Amount.Mul(rate).Round(2)
	return tx.Converted(converted, u.targetCurrency), nil
}

// Handle é o message handler da assinatura do estágio.
func (u *NormalizeFXUseCase) Handle(ctx context.Context, msg domain.Message) error {
	tx, err := domain.DecodeTransaction(msg)
	if err != nil {
		return err
	}

	normalized, err := u.Convert(tx)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCurrency) {
			// Moeda sem taxa configurada: descarta com alerta em vez de
			// repassar o valor sem conversão rio abaixo.
			log.Warn().Err(err).
				Str("message_id", msg.AppMessageID).
				Str("currency", tx.Currency).
				Msg("⚠️ Transação descartada: moeda sem taxa de conversão")
			return nil
		}
		return err
	}

	seq := u.seq.Add(1)
	t, err := topic.Build(topic.StageFraudDetect, u.producerKind, seq)
	if err != nil {
		return err
	}

	// O ID de aplicação é propagado: duplicatas na entrada continuam
	// identificáveis como duplicatas em todos os estágios seguintes.
	out, err := domain.NewTransactionMessage(msg.AppMessageID, normalized, msg.Properties)
	if err != nil {
		return err
	}

	if err := u.bus.Publish(ctx, t, out); err != nil {
		return err
	}

	log.Info().
		Str("message_id", msg.AppMessageID).
		Str("fx_amount", normalized.Amount.StringFixed(2)).
		Str("currency", normalized.Currency).
		Int64("seq", seq).
		Msg("FX transaction")
	return nil
}
