package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/sanjbhakta/fintx-surveillance/internal/gateway"
)

// fraudAlertDoc é o documento que vai para o Mongo.
// Usamos tags 'bson' em vez de 'json'; amount como string para não perder
// a precisão decimal no caminho.
type fraudAlertDoc struct {
	ID         string    `bson:"_id"`
	Source     string    `bson:"source"`
	Target     string    `bson:"target"`
	Amount     string    `bson:"amount"`
	Currency   string    `bson:"currency"`
	Threshold  string    `bson:"threshold"`
	DetectedAt time.Time `bson:"detected_at"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// AlertRepository implementa gateway.AlertRepository sobre uma collection.
type AlertRepository struct {
	collection *mongo.Collection
}

func NewAlertRepository(client *mongo.Client, dbName string) *AlertRepository {
	collection := client.Database(dbName).Collection("fraud_alerts")
	return &AlertRepository{collection: collection}
}

// Save persiste o alerta. O _id é o ID da mensagem: entrega duplicada da
// mesma suspeita vira erro de chave duplicada, que tratamos como sucesso.
func (r *AlertRepository) Save(ctx context.Context, alert gateway.FraudAlert) error {
	doc := fraudAlertDoc{
		ID:         alert.MessageID,
		Source:     string(alert.Source),
		Target:     string(alert.Target),
		Amount:     alert.Amount.StringFixed(2),
		Currency:   alert.Currency,
		Threshold:  alert.Threshold.StringFixed(2),
		DetectedAt: alert.DetectedAt,
		RecordedAt: time.Now(),
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert fraud alert: %w", err)
	}
	return nil
}
