package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected    = errors.New("messaging service is not connected")
	ErrUnknownCurrency = errors.New("no FX rate configured for currency pair")
	ErrMalformedTopic  = errors.New("malformed topic")
	ErrBadPayload      = errors.New("payload is not a valid transaction")
	ErrRetryExhausted  = errors.New("reconnection retry budget exhausted")
)

// PublishError carrega o contexto de uma falha de envio.
// Nunca é devolvido de forma síncrona para quem publicou: vai para os
// observers de falha registrados no client (ver gateway.BusObserver).
type PublishError struct {
	Topic     string
	MessageID string
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish message %s on topic %s: %v", e.MessageID, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
