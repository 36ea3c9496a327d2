package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const saleSeqPrefix = "sale:seq:"

// Numberer hands out the human-facing sale numbers, POS-YYYYMMDD-NNNN, from
// a per-day redis counter. Without redis (tests, degraded mode) it falls
// back to a timestamp suffix, which stays unique enough for a single node.
type Numberer struct {
	redis *redis.Client
}

func NewNumberer(redisClient *redis.Client) *Numberer {
	return &Numberer{redis: redisClient}
}

func (n *Numberer) Next(ctx context.Context) string {
	day := time.Now().Format("20060102")

	if n.redis != nil {
		key := saleSeqPrefix + day
		seq, err := n.redis.Incr(ctx, key).Result()
		if err == nil {
			n.redis.Expire(ctx, key, 48*time.Hour)
			return fmt.Sprintf("POS-%s-%04d", day, seq)
		}
	}

	return fmt.Sprintf("POS-%s-%d", day, time.Now().UnixNano()%1_000_000)
}
