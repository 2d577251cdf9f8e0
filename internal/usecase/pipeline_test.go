package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/infra/membus"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
)

type memAlerts struct {
	mu     sync.Mutex
	alerts []gateway.FraudAlert
}

func (a *memAlerts) Save(_ context.Context, alert gateway.FraudAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

func (a *memAlerts) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// pipeline liga os quatro estágios no bus em memória, como os binários
// fazem com o broker real.
type pipeline struct {
	bus    *membus.Bus
	ledger *memLedger
	alerts *memAlerts
}

func startPipeline(t *testing.T) *pipeline {
	t.Helper()
	bus := membus.New()
	t.Cleanup(func() { _ = bus.Close() })

	p := &pipeline{bus: bus, ledger: newMemLedger(), alerts: &memAlerts{}}

	normalizer := NewNormalizeFX(DefaultRates(), bus, "go")
	detector := NewDetectFraud(bus, "go", DefaultFraudThreshold)
	settler := NewSettle(newMemDedup(), p.ledger, fakeTxMgr{})
	recorder := NewRecordAlert(p.alerts, DefaultFraudThreshold)

	subscribe := func(stage topic.Stage, handler gateway.MessageHandler) {
		pattern, err := topic.Pattern(stage, "go")
		require.NoError(t, err)
		_, err = bus.Subscribe(pattern, handler)
		require.NoError(t, err)
	}

	subscribe(topic.StageIngress, normalizer.Handle)
	subscribe(topic.StageFraudDetect, detector.Handle)
	subscribe(topic.StageSettle, settler.Handle)
	subscribe(topic.StageComplianceAlert, recorder.Handle)

	return p
}

func (p *pipeline) inject(t *testing.T, id, amount string) {
	t.Helper()
	tx := domain.Transaction{
		Source:   "AAAaaaaaaaaa",
		Target:   "BBBbbbbbbbbb",
		Amount:   decimal.RequireFromString(amount),
		Currency: "EUR",
	}
	msg, err := domain.NewTransactionMessage(id, tx, nil)
	require.NoError(t, err)

	ingress, err := topic.Build(topic.StageIngress, "go", 1)
	require.NoError(t, err)
	require.NoError(t, p.bus.Publish(context.Background(), ingress, msg))
}

func TestPipelineClearTransactionReachesSettlement(t *testing.T) {
	p := startPipeline(t)

	// 500.00 EUR a 1.2 -> 600.00 USD -> Clear -> settlement.
	p.inject(t, "e2e-clear", "500.00")

	require.Eventually(t, func() bool { return p.ledger.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	p.ledger.mu.Lock()
	settled := p.ledger.records["e2e-clear"]
	p.ledger.mu.Unlock()

	assert.True(t, settled.Amount.Equal(decimal.RequireFromString("600.00")), "got %s", settled.Amount)
	assert.Equal(t, "USD", settled.Currency)
	assert.Equal(t, 0, p.alerts.count())
}

func TestPipelineSuspiciousTransactionNeverReachesSettlement(t *testing.T) {
	p := startPipeline(t)

	// 800.00 EUR a 1.2 -> 960.00 USD -> Suspicious -> compliance, nunca settlement.
	p.inject(t, "e2e-fraud", "800.00")

	require.Eventually(t, func() bool { return p.alerts.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	p.alerts.mu.Lock()
	alert := p.alerts.alerts[0]
	p.alerts.mu.Unlock()

	assert.Equal(t, "e2e-fraud", alert.MessageID)
	assert.True(t, alert.Amount.Equal(decimal.RequireFromString("960.00")), "got %s", alert.Amount)
	assert.Equal(t, "USD", alert.Currency)

	// Dá uma folga para qualquer entrega indevida aparecer.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, p.ledger.count())
}

func TestPipelineGeneratorFeedsNormalizer(t *testing.T) {
	p := startPipeline(t)

	gen := NewGenerateTransactions(p.bus, "go")
	require.NoError(t, gen.PublishOne(context.Background(), 1))

	// Toda transação gerada é EUR, então sempre sai do normalizador e
	// termina no settlement ou no compliance.
	require.Eventually(t, func() bool {
		return p.ledger.count()+p.alerts.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
