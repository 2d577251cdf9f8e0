package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
)

func eurTransaction(t *testing.T, amount string) domain.Message {
	t.Helper()
	tx := domain.Transaction{
		Source:   "srcAccount01",
		Target:   "dstAccount01",
		Amount:   decimal.RequireFromString(amount),
		Currency: "EUR",
	}
	msg, err := domain.NewTransactionMessage("msg-"+amount, tx, nil)
	require.NoError(t, err)
	return msg
}

func TestConvertUpdatesAmountAndCurrency(t *testing.T) {
	u := NewNormalizeFX(DefaultRates(), &recorderBus{}, "go")

	tx := domain.Transaction{Amount: decimal.RequireFromString("500.00"), Currency: "EUR"}
	got, err := u.Convert(tx)
	require.NoError(t, err)

	assert.True(t, got.Amount.Equal(decimal.RequireFromString("600.00")), "got %s", got.Amount)
	assert.Equal(t, "USD", got.Currency)
}

func TestConvertRoundTrip(t *testing.T) {
	// Lei de ida-e-volta: converter e desfazer pela taxa inversa recupera
	// o valor original dentro da tolerância de arredondamento (1 centavo).
	rate := decimal.NewFromFloat(1.2)
	u := NewNormalizeFX(StaticRates{"EUR/USD": rate}, &recorderBus{}, "go")
	tolerance := decimal.RequireFromString("0.01")

	for _, raw := range []string{"2.80", "500.00", "899.99", "750.01", "1.00"} {
		original := decimal.RequireFromString(raw)
		converted, err := u.Convert(domain.Transaction{Amount: original, Currency: "EUR"})
		require.NoError(t, err)

		back := converted.Amount.Div(rate).Round(2)
		diff := back.Sub(original).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance), "%s -> %s -> %s", original, converted.Amount, back)
	}
}

func TestHandlePublishesNormalized(t *testing.T) {
	bus := &recorderBus{}
	u := NewNormalizeFX(DefaultRates(), bus, "go")

	require.NoError(t, u.Handle(context.Background(), eurTransaction(t, "500.00")))

	published := bus.all()
	require.Len(t, published, 1)
	assert.Equal(t, "FINX/CAPITALMARKETS/TRANSACTION/FRAUD_DETECT/go/1", published[0].topic)

	out, err := domain.DecodeTransaction(published[0].msg)
	require.NoError(t, err)
	assert.True(t, out.Amount.Equal(decimal.RequireFromString("600.00")))
	assert.Equal(t, "USD", out.Currency)
	// Identidade preservada para o dedup rio abaixo.
	assert.Equal(t, "msg-500.00", published[0].msg.AppMessageID)
}

func TestHandleSequenceStrictlyIncreasing(t *testing.T) {
	bus := &recorderBus{}
	u := NewNormalizeFX(DefaultRates(), bus, "go")

	for i := 0; i < 3; i++ {
		require.NoError(t, u.Handle(context.Background(), eurTransaction(t, "10.00")))
	}

	published := bus.all()
	require.Len(t, published, 3)
	for i, p := range published {
		segments := strings.Split(p.topic, "/")
		assert.Equal(t, []string{"FRAUD_DETECT", "go"}, segments[len(segments)-3:len(segments)-1])
		assert.Equal(t, string(rune('1'+i)), segments[len(segments)-1])
	}
}

func TestHandleDropsUnknownCurrency(t *testing.T) {
	bus := &recorderBus{}
	u := NewNormalizeFX(StaticRates{}, bus, "go")

	// Sem taxa configurada: descarta com alerta, o stage não quebra e
	// NADA é republicado (nunca repassa o valor sem conversão).
	err := u.Handle(context.Background(), eurTransaction(t, "500.00"))
	require.NoError(t, err)
	assert.Empty(t, bus.all())
}

func TestStaticRatesUnknownPair(t *testing.T) {
	_, err := DefaultRates().Rate("GBP", "USD")
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}
