package gateway

import (
	"context"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
)

// ConnState é o ciclo de vida da conexão lógica com o broker.
// O estado é posse exclusiva do client do bus; nenhum stage guarda isso.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

// MessageHandler processa uma mensagem entregue pelo bus.
// Erro (ou panic) do handler é contido pelo client: loga e segue para a
// próxima mensagem, sem derrubar a assinatura (fail-soft por mensagem).
type MessageHandler func(ctx context.Context, msg domain.Message) error

// Subscription é o par (pattern, handler) registrado no bus.
// Assinaturas são independentes: cancelar ou quebrar uma não afeta as outras.
type Subscription interface {
	Pattern() string
	Unsubscribe() error
}

// Bus define o contrato de publish/subscribe que os stages enxergam.
// O stage só interage com isso, sem saber se é RabbitMQ ou bus em memória.
type Bus interface {
	// Publish é fire-and-forget: enfileira o envio e retorna. Falhas de
	// transporte chegam de forma assíncrona aos observers registrados,
	// nunca como erro síncrono depois da mensagem aceita.
	Publish(ctx context.Context, topic string, msg domain.Message) error

	Subscribe(pattern string, handler MessageHandler) (Subscription, error)

	// Close libera assinaturas e conexão. Idempotente.
	Close() error
}

// BusObserver é o conjunto de capacidades de observação do ciclo de vida.
// Campos nil são ignorados; qualquer componente pode registrar vários
// observers independentes.
type BusObserver struct {
	OnReconnected            func()
	OnReconnectAttemptFailed func(attempt int, cause error)
	OnServiceInterrupted     func(cause error)
	OnPublishFailure         func(err *domain.PublishError)
}

// Observable é implementado pelos buses que emitem eventos de ciclo de vida.
type Observable interface {
	AddObserver(obs BusObserver)
}
