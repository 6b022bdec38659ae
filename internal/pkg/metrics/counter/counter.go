package counter

import (
	"context"
	"strconv"
	"strings"

	"github.com/fastlog-app/fastlog-backend/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "fastlog:billing:counters:webhook_outcomes"

// Recorder counts webhook outcomes in a Redis hash keyed by
// "<event type>|<outcome>". Counters survive restarts and are shared by all
// instances.
type Recorder struct {
	client func() *redis.Client
	key    string
}

// NewRecorder returns a Recorder on the shared cache client.
func NewRecorder() *Recorder {
	return &Recorder{client: cache.GetClient, key: webhookOutcomesKey}
}

func field(eventType, outcome string) string {
	return strings.TrimSpace(eventType) + "|" + strings.TrimSpace(outcome)
}

// AddWebhookOutcome increments the counter for an event type and outcome.
func (r *Recorder) AddWebhookOutcome(ctx context.Context, eventType, outcome string) error {
	return r.client().HIncrBy(ctx, r.key, field(eventType, outcome), 1).Err()
}

// WebhookOutcomes returns the current counters.
func (r *Recorder) WebhookOutcomes(ctx context.Context) (map[string]int64, error) {
	data, err := r.client().HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || n == 0 {
			continue
		}
		out[k] = n
	}
	return out, nil
}
