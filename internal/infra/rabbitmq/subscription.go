package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
	"github.com/sanjbhakta/fintx-surveillance/internal/topic"
)

// subscription é o par imutável (pattern, handler). Cada assinatura tem o
// próprio canal AMQP e a própria goroutine de consumo, então elas são
// independentes: quebrar uma nunca desregistra as outras.
type subscription struct {
	client  *Client
	pattern string
	handler gateway.MessageHandler

	mu       sync.Mutex
	ch       *amqp.Channel
	stopped  bool
	handlers sync.WaitGroup
}

// Subscribe registra o par (pattern, handler) e começa a consumir.
func (c *Client) Subscribe(pattern string, handler gateway.MessageHandler) (gateway.Subscription, error) {
	if err := topic.ValidatePattern(pattern); err != nil {
		return nil, err
	}

	select {
	case <-c.closed:
		return nil, domain.ErrNotConnected
	default:
	}

	s := &subscription{client: c, pattern: pattern, handler: handler}

	c.mu.Lock()
	conn := c.conn
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	if err := s.start(conn); err != nil {
		return nil, err
	}

	log.Info().Str("pattern", pattern).Msg("Assinatura registrada")
	return s, nil
}

// start abre canal, fila e consumidor. Também é chamado depois de um
// redial para restabelecer a assinatura na conexão nova.
func (s *subscription) start(conn *amqp.Connection) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}

	// QoS (Prefetch Count = 1): o broker manda 1 mensagem por vez e espera
	// o Ack. Mantém a entrega em ordem de publicação por assinatura.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// Fila exclusiva com nome dado pelo servidor: cada assinatura enxerga
	// o fluxo completo do pattern, no espírito de um receiver direto.
	q, err := ch.QueueDeclare(
		"",    // name (server-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind: amarra a fila ao exchange pelo pattern traduzido ("/>"# vira ".#")
	err = ch.QueueBind(
		q.Name,                // queue name
		bindingKey(s.pattern), // routing key
		s.client.cfg.Exchange, // exchange
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		false,  // auto-ack (manual: at-least-once)
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	s.mu.Lock()
	s.ch = ch
	s.mu.Unlock()

	go s.consume(msgs)
	return nil
}

// consume roda até o canal de entregas fechar (unsubscribe ou queda de
// conexão; no segundo caso o redial do supervisor chama start de novo).
func (s *subscription) consume(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		s.dispatch(d)
	}
}

func (s *subscription) dispatch(d amqp.Delivery) {
	s.handlers.Add(1)
	defer s.handlers.Done()

	msg := domain.Message{
		AppMessageID: d.MessageId,
		Properties:   headerProperties(d.Headers),
		Body:         d.Body,
	}

	// Fail-soft por mensagem: erro ou panic do handler é logado com a
	// identidade da mensagem e a assinatura segue processando as próximas.
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("pattern", s.pattern).
					Str("message_id", msg.AppMessageID).
					Interface("panic", r).
					Msg("Handler entrou em pânico, mensagem descartada")
			}
		}()
		if err := s.handler(context.Background(), msg); err != nil {
			log.Error().Err(err).
				Str("pattern", s.pattern).
				Str("message_id", msg.AppMessageID).
				Msg("Handler falhou, mensagem descartada")
		}
	}()

	// Ack mesmo em falha do handler: redelivery infinito de uma mensagem
	// venenosa travaria o stage inteiro (prefetch 1).
	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Str("message_id", msg.AppMessageID).Msg("Falha ao enviar Ack")
	}
}

func (s *subscription) Pattern() string { return s.pattern }

// Unsubscribe cancela o consumidor e espera os handlers em voo terminarem.
// As demais assinaturas do client não são afetadas.
func (s *subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ch := s.ch
	s.ch = nil
	s.mu.Unlock()

	if ch != nil {
		_ = ch.Close() // fecha o canal de entregas e encerra o consume
	}
	s.handlers.Wait()

	c := s.client
	c.mu.Lock()
	for i, other := range c.subs {
		if other == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

func headerProperties(h amqp.Table) map[string]string {
	if len(h) == 0 {
		return nil
	}
	props := make(map[string]string, len(h))
	for k, v := range h {
		if sv, ok := v.(string); ok {
			props[k] = sv
		}
	}
	return props
}
