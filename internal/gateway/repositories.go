package gateway

import (
	"context"
	"time"

	"github.com/sanjbhakta/fintx-surveillance/internal/domain"
	"github.com/shopspring/decimal"
)

// DedupRepository rastreia IDs de mensagem já vistos pelo settlement.
// Entrega at-least-once significa que duplicatas VÃO aparecer depois de um
// reconnect; este repositório é a primeira linha de defesa.
type DedupRepository interface {
	// FirstSeen retorna true se o ID nunca foi visto (e o marca, com TTL).
	FirstSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
}

// Settlement é o registro de reconciliação de uma transação liberada.
type Settlement struct {
	MessageID string
	Source    domain.AccountID
	Target    domain.AccountID
	Amount    decimal.Decimal
	Currency  string
	SettledAt time.Time
}

// SettlementLedger persiste reconciliações e as posições por conta.
// O insert tem que ser livre de conflito por MessageID: gravar a mesma
// mensagem duas vezes produz UM efeito, não dois.
type SettlementLedger interface {
	// Record grava o settlement. Retorna false se o MessageID já existia.
	Record(ctx context.Context, s Settlement) (bool, error)

	// UpdatePositions credita o destino e debita a origem do valor liquidado.
	UpdatePositions(ctx context.Context, s Settlement) error

	// WithTx segue o padrão dos repositórios para participar da transação
	// atômica aberta pelo TransactionManager.
	WithTx(tx TransactionObject) SettlementLedger
}

// FraudAlert é o que o compliance guarda de uma transação suspeita.
type FraudAlert struct {
	MessageID  string
	Source     domain.AccountID
	Target     domain.AccountID
	Amount     decimal.Decimal
	Currency   string
	Threshold  decimal.Decimal
	DetectedAt time.Time
}

// AlertRepository define o contrato para persistência de alertas de fraude.
type AlertRepository interface {
	Save(ctx context.Context, alert FraudAlert) error
}

// RateProvider entrega a taxa de conversão entre duas moedas.
// Falha com domain.ErrUnknownCurrency se o par não estiver configurado.
type RateProvider interface {
	Rate(from, to string) (decimal.Decimal, error)
}
