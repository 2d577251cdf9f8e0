package usecase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
)

func settleMessage(t *testing.T, id string) domain.Message {
	t.Helper()
	tx := domain.Transaction{
		Source:   "srcAccount01",
		Target:   "dstAccount01",
		Amount:   decimal.RequireFromString("600.00"),
		Currency: "USD",
	}
	msg, err := domain.NewTransactionMessage(id, tx, nil)
	require.NoError(t, err)
	return msg
}

func TestSettleRecordsOnce(t *testing.T) {
	ledger := newMemLedger()
	u := NewSettle(newMemDedup(), ledger, fakeTxMgr{})

	require.NoError(t, u.Handle(context.Background(), settleMessage(t, "msg-1")))
	assert.Equal(t, 1, ledger.count())

	balance := ledger.positions["dstAccount01"]
	assert.True(t, balance.Equal(decimal.RequireFromString("600.00")))
}

func TestSettleDuplicateDeliveryHasOneEffect(t *testing.T) {
	// At-least-once: a mesma mensagem entregue duas vezes produz UMA
	// reconciliação, não duas.
	ledger := newMemLedger()
	u := NewSettle(newMemDedup(), ledger, fakeTxMgr{})

	msg := settleMessage(t, "msg-dup")
	require.NoError(t, u.Handle(context.Background(), msg))
	require.NoError(t, u.Handle(context.Background(), msg))

	assert.Equal(t, 1, ledger.count())
	assert.True(t, ledger.positions["dstAccount01"].Equal(decimal.RequireFromString("600.00")))
	assert.True(t, ledger.positions["srcAccount01"].Equal(decimal.RequireFromString("-600.00")))
}

func TestSettleDuplicatePastDedupStillOneEffect(t *testing.T) {
	// Mesmo se o Redis "esquecer" (dedup sempre responde primeira vez),
	// o insert livre de conflito no ledger segura a idempotência.
	ledger := newMemLedger()
	u := NewSettle(alwaysFirstDedup{}, ledger, fakeTxMgr{})

	msg := settleMessage(t, "msg-dup2")
	require.NoError(t, u.Handle(context.Background(), msg))
	require.NoError(t, u.Handle(context.Background(), msg))

	assert.Equal(t, 1, ledger.count())
	assert.True(t, ledger.positions["dstAccount01"].Equal(decimal.RequireFromString("600.00")))
}

func TestSettleBadPayloadReturnsError(t *testing.T) {
	u := NewSettle(newMemDedup(), newMemLedger(), fakeTxMgr{})
	err := u.Handle(context.Background(), domain.Message{AppMessageID: "x", Body: []byte("garbage")})
	assert.ErrorIs(t, err, domain.ErrBadPayload)
}
