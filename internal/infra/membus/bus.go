// Package membus é um bus em memória com a mesma semântica do broker real:
// entrega assíncrona, em ordem de publicação por assinatura, fail-soft por
// mensagem. Serve os testes e execuções locais sem broker.
package membus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
)

const queueSize = 128

type delivery struct {
	topic string
	msg   domain.Message
}

type subscription struct {
	bus     *Bus
	pattern string
	handler gateway.MessageHandler
	queue   chan delivery
	done    chan struct{}
	once    sync.Once
}

// Bus implementa gateway.Bus sobre um mapa de assinantes protegido por mutex.
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	closed bool
	wg     sync.WaitGroup
}

func New() *Bus { return &Bus{} }

// Publish entrega a mensagem a toda assinatura cujo pattern casa com o
// tópico. Cada assinatura tem a própria fila e worker, então assinaturas
// independentes podem intercalar, mas cada uma vê a ordem de publicação.
func (b *Bus) Publish(_ context.Context, t string, msg domain.Message) error {
	if err := topic.Validate(t); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return &domain.PublishError{Topic: t, MessageID: msg.AppMessageID, Err: domain.ErrNotConnected}
	}
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		if !topic.Match(s.pattern, t) {
			continue
		}
		select {
		case s.queue <- delivery{topic: t, msg: msg}:
		case <-s.done:
		}
	}
	return nil
}

func (b *Bus) Subscribe(pattern string, handler gateway.MessageHandler) (gateway.Subscription, error) {
	if err := topic.ValidatePattern(pattern); err != nil {
		return nil, err
	}

	s := &subscription{
		bus:     b,
		pattern: pattern,
		handler: handler,
		queue:   make(chan delivery, queueSize),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, domain.ErrNotConnected
	}
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	b.wg.Add(1)
	go s.run()
	return s, nil
}

// Close cancela as assinaturas e espera os workers drenarem. Idempotente.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	b.wg.Wait()
	return nil
}

func (s *subscription) run() {
	defer s.bus.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case d := <-s.queue:
			s.dispatch(d)
		}
	}
}

func (s *subscription) dispatch(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("pattern", s.pattern).
				Str("message_id", d.msg.AppMessageID).
				Interface("panic", r).
				Msg("Handler entrou em pânico, mensagem descartada")
		}
	}()
	if err := s.handler(context.Background(), d.msg); err != nil {
		log.Error().Err(err).
			Str("pattern", s.pattern).
			Str("message_id", d.msg.AppMessageID).
			Msg("Handler falhou, mensagem descartada")
	}
}

func (s *subscription) Pattern() string { return s.pattern }

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.done)
		b := s.bus
		b.mu.Lock()
		for i, other := range b.subs {
			if other == s {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	})
	return nil
}
