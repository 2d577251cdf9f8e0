package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// Uow implementa gateway.TransactionManager. O settlement usa isso para
// gravar a linha de reconciliação e as posições num único BEGIN...COMMIT.
type Uow struct {
	pool *pgxpool.Pool
}

func NewUow(pool *pgxpool.Pool) *Uow {
	return &Uow{pool: pool}
}

// Run executa a função dentro de uma transação ACID: erro faz Rollback,
// sucesso faz Commit. O "crachá" da transação viaja no contexto e os
// repositórios o recuperam via WithTx.
func (u *Uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel: pgx.ReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback garantido em todo caminho de saída; vira no-op após Commit.
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ctxWithTx := context.WithValue(ctx, gateway.TransactionKey, tx)

	if err := fn(ctxWithTx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
