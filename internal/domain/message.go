package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Chaves das properties que acompanham toda mensagem do pipeline.
const (
	PropApplication = "application"
	PropOrigin      = "origin"
)

// Message é o envelope que trafega no bus: payload serializado mais um
// conjunto pequeno de propriedades string. O AppMessageID é a identidade
// usada para deduplicação (entrega at-least-once gera duplicatas).
type Message struct {
	AppMessageID string            `json:"app_message_id"`
	Properties   map[string]string `json:"properties,omitempty"`
	Body         []byte            `json:"body"`
}

// transactionPayload mapeia a Transaction para o formato de fio (JSON).
// O decimal serializa como string ("600.00"), preservando a precisão
// de 2 casas sem passar por float64.
type transactionPayload struct {
	Source   AccountID `json:"source"`
	Target   AccountID `json:"target"`
	Amount   string    `json:"amount"`
	Currency string    `json:"currency"`
}

// NewTransactionMessage monta o envelope de uma transação.
func NewTransactionMessage(id string, t Transaction, properties map[string]string) (Message, error) {
	body, err := json.Marshal(transactionPayload{
		Source:   t.Source,
		Target:   t.Target,
		Amount:   t.Amount.StringFixed(2),
		Currency: t.Currency,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	return Message{
		AppMessageID: id,
		Properties:   properties,
		Body:         body,
	}, nil
}

// DecodeTransaction recupera a Transaction do corpo da mensagem.
// O round-trip é sem perda: amount volta exatamente como foi publicado.
func DecodeTransaction(m Message) (Transaction, error) {
	var p transactionPayload
	if err := json.Unmarshal(m.Body, &p); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Source:   p.Source,
		Target:   p.Target,
		Amount:   amount,
		Currency: p.Currency,
	}, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bad amount %q", ErrBadPayload, raw)
	}
	return amount, nil
}
