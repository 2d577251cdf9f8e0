package domain

import (
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountID é um token alfanumérico de 12 caracteres.
// Não há garantia de unicidade entre transações (e nem precisa).
type AccountID string

const accountIDLength = 12

const accountIDChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Transaction representa uma transação financeira fluindo pelo pipeline.
// Clean Architecture: Esta entidade não sabe o que é JSON nem AMQP.
// Imutável depois de construída: transformações devolvem um NOVO valor.
type Transaction struct {
	Source   AccountID
	Target   AccountID
	Amount   decimal.Decimal
	Currency string
}

// Converted devolve uma cópia com amount E currency trocados juntos.
// Os dois campos mudam de forma atômica para nunca deixar um registro
// inconsistente (valor em USD com etiqueta EUR) descendo o pipeline.
func (t Transaction) Converted(amount decimal.Decimal, currency string) Transaction {
	return Transaction{
		Source:   t.Source,
		Target:   t.Target,
		Amount:   amount,
		Currency: currency,
	}
}

// NewRandomAccountID gera um ID de conta aleatório de 12 caracteres.
func NewRandomAccountID() AccountID {
	var b strings.Builder
	b.Grow(accountIDLength)
	for i := 0; i < accountIDLength; i++ {
		b.WriteByte(accountIDChars[rand.Intn(len(accountIDChars))])
	}
	return AccountID(b.String())
}

// NewRandomTransaction cria uma transação sintética (fake).
// Valor entre 1.00 e 1000.00. Mantemos simples: é tudo em euros.
func NewRandomTransaction() Transaction {
	cents := int64(rand.Intn(100000-100+1) + 100)
	return Transaction{
		Source:   NewRandomAccountID(),
		Target:   NewRandomAccountID(),
		Amount:   decimal.New(cents, -2),
		Currency: "EUR",
	}
}
