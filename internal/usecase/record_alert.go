package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// RecordAlertUseCase é o lado do compliance: persiste cada transação
// suspeita como um alerta de fraude para revisão humana.
type RecordAlertUseCase struct {
	alerts    gateway.AlertRepository
	threshold decimal.Decimal
}

func NewRecordAlert(alerts gateway.AlertRepository, threshold decimal.Decimal) *RecordAlertUseCase {
	return &RecordAlertUseCase{alerts: alerts, threshold: threshold}
}

// Handle é o message handler da assinatura de compliance.
func (u *RecordAlertUseCase) Handle(ctx context.Context, msg domain.Message) error {
	tx, err := domain.DecodeTransaction(msg)
	if err != nil {
		return err
	}

	alert := gateway.FraudAlert{
		MessageID:  msg.AppMessageID,
		Source:     tx.Source,
		Target:     tx.Target,
		Amount:     tx.Amount,
		Currency:   tx.Currency,
		Threshold:  u.threshold,
		DetectedAt: time.Now(),
	}

	if err := u.alerts.Save(ctx, alert); err != nil {
		return fmt.Errorf("falha ao salvar alerta de fraude: %w", err)
	}

	log.Warn().
		Str("message_id", msg.AppMessageID).
		Str("amount", tx.Amount.StringFixed(2)).
		Str("currency", tx.Currency).
		Msg("Alerta de fraude registrado para o compliance")
	return nil
}
