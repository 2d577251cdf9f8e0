package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupRepository implementa gateway.DedupRepository com SETNX + TTL.
type DedupRepository struct {
	client *redis.Client
}

func NewDedupRepository(client *redis.Client) *DedupRepository {
	return &DedupRepository{client: client}
}

// FirstSeen marca o ID e diz se é a primeira vez que ele aparece.
// SetNX é atômico no Redis: duas entregas concorrentes da mesma mensagem
// só ganham o "true" uma vez.
func (r *DedupRepository) FirstSeen(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, "settled:"+messageID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check message id: %w", err)
	}
	return ok, nil
}
