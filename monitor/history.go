package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/zeu5/tablesim-decider/types"
)

// HistoryStore is a bounded window of past snapshots, oldest evicted first
type HistoryStore interface {
	// Append records a copy of the state
	Append(context.Context, *types.WorldState) error
	// Snapshots returns the window oldest first
	Snapshots(context.Context) ([]*types.WorldState, error)
	Clear(context.Context) error
	Len(context.Context) (int, error)
	// Record appends a copy of the state and returns how many snapshots
	// of the window are equivalent to it. When the count reaches
	// threshold the window is cleared in the same step.
	Record(ctx context.Context, s *types.WorldState, threshold int) (int, error)
}

// MemoryHistory is a ring buffer of snapshots
type MemoryHistory struct {
	lock   *sync.Mutex
	states []*types.WorldState
	head   int
	count  int
}

var _ HistoryStore = &MemoryHistory{}

func NewMemoryHistory(size int) *MemoryHistory {
	return &MemoryHistory{
		lock:   new(sync.Mutex),
		states: make([]*types.WorldState, size),
	}
}

func (h *MemoryHistory) Append(_ context.Context, s *types.WorldState) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.push(s)
	return nil
}

func (h *MemoryHistory) push(s *types.WorldState) {
	size := len(h.states)
	if size == 0 {
		return
	}
	h.states[(h.head+h.count)%size] = s.Copy()
	if h.count < size {
		h.count++
	} else {
		h.head = (h.head + 1) % size
	}
}

func (h *MemoryHistory) reset() {
	for i := range h.states {
		h.states[i] = nil
	}
	h.head = 0
	h.count = 0
}

func (h *MemoryHistory) Record(_ context.Context, s *types.WorldState, threshold int) (int, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.push(s)
	repeats := 0
	for i := 0; i < h.count; i++ {
		if h.states[(h.head+i)%len(h.states)].Equivalent(s) {
			repeats++
		}
	}
	if repeats >= threshold {
		h.reset()
	}
	return repeats, nil
}

func (h *MemoryHistory) Snapshots(_ context.Context) ([]*types.WorldState, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	out := make([]*types.WorldState, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.states[(h.head+i)%len(h.states)].Copy()
	}
	return out, nil
}

func (h *MemoryHistory) Clear(_ context.Context) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.reset()
	return nil
}

func (h *MemoryHistory) Len(_ context.Context) (int, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.count, nil
}

// recordScript appends, trims and counts the snapshots equal to the new
// one, deleting the list once the count reaches the threshold. Running it
// as one script keeps replicas sharing an episode from interleaving.
var recordScript = redis.NewScript(`
redis.call('RPUSH', KEYS[1], ARGV[1])
redis.call('LTRIM', KEYS[1], -tonumber(ARGV[2]), -1)
local repeats = 0
for _, v in ipairs(redis.call('LRANGE', KEYS[1], 0, -1)) do
  if v == ARGV[1] then
    repeats = repeats + 1
  end
end
if repeats >= tonumber(ARGV[3]) then
  redis.call('DEL', KEYS[1])
end
return repeats
`)

// RedisHistory keeps the window in a Redis list so several service
// replicas can share an episode. Snapshots are stored as JSON, so two
// snapshots are equivalent exactly when their encodings match.
type RedisHistory struct {
	client *redis.Client
	key    string
	size   int
}

var _ HistoryStore = &RedisHistory{}

func HistoryKey(episode string) string {
	return "tablesim:history:" + episode
}

func NewRedisHistory(client *redis.Client, episode string, size int) *RedisHistory {
	return &RedisHistory{
		client: client,
		key:    HistoryKey(episode),
		size:   size,
	}
}

// encodeSnapshot marshals the state with a nil object list written as
// an empty one, matching Equivalent
func encodeSnapshot(s *types.WorldState) ([]byte, error) {
	if s.Objects == nil {
		s = s.Copy()
		s.Objects = []types.Object{}
	}
	return json.Marshal(s)
}

func (r *RedisHistory) Append(ctx context.Context, s *types.WorldState) error {
	bs, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.key, bs)
	pipe.LTrim(ctx, r.key, int64(-r.size), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending to %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisHistory) Snapshots(ctx context.Context) ([]*types.WorldState, error) {
	vals, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", r.key, err)
	}
	return decodeSnapshots(vals)
}

func decodeSnapshots(vals []string) ([]*types.WorldState, error) {
	out := make([]*types.WorldState, 0, len(vals))
	for _, v := range vals {
		s := &types.WorldState{}
		if err := json.Unmarshal([]byte(v), s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisHistory) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisHistory) Record(ctx context.Context, s *types.WorldState, threshold int) (int, error) {
	bs, err := encodeSnapshot(s)
	if err != nil {
		return 0, err
	}
	repeats, err := recordScript.Run(ctx, r.client, []string{r.key}, string(bs), r.size, threshold).Int()
	if err != nil {
		return 0, fmt.Errorf("recording to %s: %w", r.key, err)
	}
	return repeats, nil
}

func (r *RedisHistory) Len(ctx context.Context) (int, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	return int(n), err
}
