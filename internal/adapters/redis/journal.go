package redisad

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"storefront/internal/domain"
)

const journalKey = "checkout:reconcile"

// Journal keeps captured-but-uncommitted bookings in a Redis hash keyed by
// entry id, so re-recording an entry replaces it.
type Journal struct{ c *redis.Client }

func NewJournal(c *redis.Client) *Journal { return &Journal{c: c} }

func (j *Journal) Record(ctx context.Context, e domain.ReconciliationEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return j.c.HSet(ctx, journalKey, e.ID, b).Err()
}

// Pending returns up to limit entries, oldest first. Undecodable entries are skipped and logged.
func (j *Journal) Pending(ctx context.Context, limit int) ([]domain.ReconciliationEntry, error) {
	vals, err := j.c.HVals(ctx, journalKey).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	out := make([]domain.ReconciliationEntry, 0, len(vals))
	for _, v := range vals {
		var e domain.ReconciliationEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			log.Error().Err(err).Msg("journal: skipping undecodable entry")
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].RecordedAt.Before(out[b].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (j *Journal) Resolve(ctx context.Context, e domain.ReconciliationEntry) error {
	return j.c.HDel(ctx, journalKey, e.ID).Err()
}
