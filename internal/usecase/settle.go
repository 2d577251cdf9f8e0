package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// SettleUseCase finaliza transações liberadas pela triagem de fraude.
//
// Entrega at-least-once: a MESMA mensagem pode chegar duas vezes depois de
// um reconnect. A reconciliação é idempotente por ID de mensagem em duas
// camadas: o dedup no Redis (rápido) e o insert livre de conflito no ledger
// (definitivo, caso o Redis tenha esquecido).
type SettleUseCase struct {
	dedup    gateway.DedupRepository
	ledger   gateway.SettlementLedger
	txMgr    gateway.TransactionManager
	dedupTTL time.Duration
}

func NewSettle(
	dedup gateway.DedupRepository,
	ledger gateway.SettlementLedger,
	txMgr gateway.TransactionManager,
) *SettleUseCase {
	return &SettleUseCase{
		dedup:    dedup,
		ledger:   ledger,
		txMgr:    txMgr,
		dedupTTL: 24 * time.Hour,
	}
}

// Handle é o message handler da assinatura do estágio.
func (u *SettleUseCase) Handle(ctx context.Context, msg domain.Message) error {
	tx, err := domain.DecodeTransaction(msg)
	if err != nil {
		return err
	}

	first, err := u.dedup.FirstSeen(ctx, msg.AppMessageID, u.dedupTTL)
	if err != nil {
		// Redis fora do ar não pode travar o settlement (Fail Open):
		// o ledger ainda garante um efeito só por mensagem.
		log.Warn().Err(err).Msg("Dedup indisponível, seguindo para o ledger")
		first = true
	}
	if !first {
		log.Info().
			Str("message_id", msg.AppMessageID).
			Msg("Entrega duplicada ignorada (já reconciliada)")
		return nil
	}

	settlement := gateway.Settlement{
		MessageID: msg.AppMessageID,
		Source:    tx.Source,
		Target:    tx.Target,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		SettledAt: time.Now(),
	}

	// Linha do settlement e atualização de posições na MESMA transação:
	// ou a reconciliação inteira entra, ou nada entra.
	err = u.txMgr.Run(ctx, func(contextWithTx context.Context) error {
		transactionObject := contextWithTx.Value(gateway.TransactionKey)
		if transactionObject == nil {
			return fmt.Errorf("erro crítico: transação não encontrada no contexto")
		}
		ledgerTx := u.ledger.WithTx(transactionObject)

		recorded, err := ledgerTx.Record(contextWithTx, settlement)
		if err != nil {
			return fmt.Errorf("falha ao gravar settlement: %w", err)
		}
		if !recorded {
			// O Redis esqueceu mas o ledger lembrou: duplicata, sem efeito.
			log.Info().Str("message_id", msg.AppMessageID).Msg("Settlement já registrado no ledger")
			return nil
		}

		if err := ledgerTx.UpdatePositions(contextWithTx, settlement); err != nil {
			return fmt.Errorf("falha ao atualizar posições: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("message_id", msg.AppMessageID).
		Str("source", string(tx.Source)).
		Str("target", string(tx.Target)).
		Str("amount", tx.Amount.StringFixed(2)).
		Str("currency", tx.Currency).
		Msg("✅ Reconciliação concluída")
	return nil
}
