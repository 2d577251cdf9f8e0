package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// Esquema esperado (migrations ficam fora deste serviço):
//
//	CREATE TABLE settlements (
//	    message_id  TEXT PRIMARY KEY,
//	    source      TEXT NOT NULL,
//	    target      TEXT NOT NULL,
//	    amount      NUMERIC(12,2) NOT NULL,
//	    currency    TEXT NOT NULL,
//	    settled_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE positions (
//	    account  TEXT PRIMARY KEY,
//	    balance  NUMERIC(14,2) NOT NULL DEFAULT 0
//	);

// SettlementLedger implementa gateway.SettlementLedger usando pgx/v5.
type SettlementLedger struct {
	db *pgxpool.Pool
	tx pgx.Tx // nil fora de transação
}

func NewSettlementLedger(pool *pgxpool.Pool) *SettlementLedger {
	return &SettlementLedger{db: pool}
}

// Record insere o settlement. ON CONFLICT DO NOTHING no message_id é a
// garantia definitiva de idempotência: a segunda entrega não insere nada.
func (r *SettlementLedger) Record(ctx context.Context, s gateway.Settlement) (bool, error) {
	tag, err := r.exec(ctx,
		`INSERT INTO settlements (message_id, source, target, amount, currency, settled_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (message_id) DO NOTHING`,
		s.MessageID, string(s.Source), string(s.Target), s.Amount, s.Currency, s.SettledAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record settlement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdatePositions credita o destino e debita a origem do valor liquidado.
func (r *SettlementLedger) UpdatePositions(ctx context.Context, s gateway.Settlement) error {
	const upsert = `INSERT INTO positions (account, balance) VALUES ($1, $2)
	                ON CONFLICT (account) DO UPDATE SET balance = positions.balance + $2`

	if _, err := r.exec(ctx, upsert, string(s.Target), s.Amount); err != nil {
		return fmt.Errorf("failed to credit target position: %w", err)
	}
	if _, err := r.exec(ctx, upsert, string(s.Source), s.Amount.Neg()); err != nil {
		return fmt.Errorf("failed to debit source position: %w", err)
	}
	return nil
}

// WithTx devolve uma cópia do ledger amarrada àquela transação.
func (r *SettlementLedger) WithTx(tx gateway.TransactionObject) gateway.SettlementLedger {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &SettlementLedger{db: r.db, tx: pgTx}
}

func (r *SettlementLedger) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if r.tx != nil {
		return r.tx.Exec(ctx, sql, args...)
	}
	return r.db.Exec(ctx, sql, args...)
}
