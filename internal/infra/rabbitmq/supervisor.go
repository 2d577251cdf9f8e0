package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// RetryStrategy limita a reconexão: N tentativas espaçadas por um intervalo
// fixo. Depois da última falha a conexão é terminal (Failed).
type RetryStrategy struct {
	Attempts int
	Interval time.Duration
}

// ParametrizedRetry monta a estratégia. Os defaults do pipeline são
// 20 tentativas a cada 3 segundos.
func ParametrizedRetry(attempts int, interval time.Duration) RetryStrategy {
	return RetryStrategy{Attempts: attempts, Interval: interval}
}

// DefaultRetry é a estratégia padrão do pipeline.
func DefaultRetry() RetryStrategy { return ParametrizedRetry(20, 3*time.Second) }

// managedConn é a fatia do Client que o Supervisor enxerga.
type managedConn interface {
	NotifyDown() <-chan error
	Redial(ctx context.Context) error
	SetState(gateway.ConnState)
	notifyServiceInterrupted(cause error)
	notifyReconnectAttemptFailed(attempt int, cause error)
	notifyReconnected()
}

// Supervisor embrulha o client e cuida do ciclo de vida da conexão:
// queda inesperada -> Reconnecting -> (N tentativas) -> Connected | Failed.
// Falha terminal é entregue UMA vez no canal Fatal; o processo dono decide
// encerrar (exit não-zero).
type Supervisor struct {
	conn  managedConn
	retry RetryStrategy
	fatal chan error
}

// NewSupervisor cria o supervisor para um client já conectado.
func NewSupervisor(conn managedConn, retry RetryStrategy) *Supervisor {
	return &Supervisor{
		conn:  conn,
		retry: retry,
		fatal: make(chan error, 1),
	}
}

// Fatal entrega o erro terminal depois que o orçamento de retry esgota.
func (s *Supervisor) Fatal() <-chan error { return s.fatal }

// Run bloqueia supervisionando a conexão; normalmente roda num goroutine.
// Retorna quando o contexto é cancelado ou a conexão vira Failed.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cause := <-s.conn.NotifyDown():
			s.conn.SetState(gateway.StateReconnecting)
			log.Warn().Err(cause).Msg("🔴 Conexão com o broker perdida, entrando em modo degradado")
			s.conn.notifyServiceInterrupted(cause)

			if !s.reconnect(ctx) {
				if ctx.Err() != nil {
					return
				}
				s.conn.SetState(gateway.StateFailed)
				s.fatal <- fmt.Errorf("%w: %d attempts every %s (last cause: %v)",
					domain.ErrRetryExhausted, s.retry.Attempts, s.retry.Interval, cause)
				return
			}
		}
	}
}

// reconnect tenta restabelecer a conexão dentro do orçamento de retry.
// Cada tentativa falha mantém o estado Reconnecting e gera um evento
// informacional com a causa.
func (s *Supervisor) reconnect(ctx context.Context) bool {
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.retry.Interval):
		}

		if err := s.conn.Redial(ctx); err != nil {
			log.Warn().Err(err).
				Int("attempt", attempt).
				Int("budget", s.retry.Attempts).
				Msg("Tentativa de reconexão falhou")
			s.conn.notifyReconnectAttemptFailed(attempt, err)
			continue
		}

		s.conn.SetState(gateway.StateConnected)
		log.Info().Int("attempt", attempt).Msg("✅ Reconectado ao broker")
		s.conn.notifyReconnected()
		return true
	}
	return false
}
