package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// recorderBus captura as publicações de um stage para inspeção.
type recorderBus struct {
	mu        sync.Mutex
	published []publishedMsg
}

type publishedMsg struct {
	topic string
	msg   domain.Message
}

func (b *recorderBus) Publish(_ context.Context, topic string, msg domain.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMsg{topic: topic, msg: msg})
	return nil
}

func (b *recorderBus) Subscribe(string, gateway.MessageHandler) (gateway.Subscription, error) {
	return nil, nil
}

func (b *recorderBus) Close() error { return nil }

func (b *recorderBus) all() []publishedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedMsg, len(b.published))
	copy(out, b.published)
	return out
}

// memDedup é um DedupRepository em memória.
type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDedup() *memDedup { return &memDedup{seen: make(map[string]bool)} }

func (d *memDedup) FirstSeen(_ context.Context, id string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

// memLedger é um SettlementLedger em memória com a mesma garantia de
// idempotência do Postgres (um efeito por message id).
type memLedger struct {
	mu        sync.Mutex
	records   map[string]gateway.Settlement
	positions map[domain.AccountID]decimal.Decimal
}

func newMemLedger() *memLedger {
	return &memLedger{
		records:   make(map[string]gateway.Settlement),
		positions: make(map[domain.AccountID]decimal.Decimal),
	}
}

func (l *memLedger) Record(_ context.Context, s gateway.Settlement) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[s.MessageID]; ok {
		return false, nil
	}
	l.records[s.MessageID] = s
	return true, nil
}

func (l *memLedger) UpdatePositions(_ context.Context, s gateway.Settlement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[s.Target] = l.positions[s.Target].Add(s.Amount)
	l.positions[s.Source] = l.positions[s.Source].Sub(s.Amount)
	return nil
}

func (l *memLedger) WithTx(gateway.TransactionObject) gateway.SettlementLedger { return l }

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// alwaysFirstDedup simula um Redis que perdeu as chaves (TTL vencido).
type alwaysFirstDedup struct{}

func (alwaysFirstDedup) FirstSeen(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

// fakeTxMgr injeta um "crachá" de transação dummy no contexto.
type fakeTxMgr struct{}

func (fakeTxMgr) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, gateway.TransactionKey, struct{ tx string }{"fake"}))
}
