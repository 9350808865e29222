package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	applyStatusConflict int64 = 0
	applyStatusApplied  int64 = 1
)

// ARGV layout: <n expect> (<field> <value>)* <n set> (<field> <value>)* <n del> (<field>)*
const applyMutationScript = `
local key = KEYS[1]
local idx = 1

local n_expect = tonumber(ARGV[idx])
idx = idx + 1
for i = 1, n_expect do
  local field = ARGV[idx]
  local want = ARGV[idx + 1]
  idx = idx + 2
  local got = redis.call("HGET", key, field)
  if not got then
    got = ""
  end
  if got ~= want then
    return 0
  end
end

local n_set = tonumber(ARGV[idx])
local set_start = idx + 1
idx = set_start + n_set * 2

local n_del = tonumber(ARGV[idx])
for i = 1, n_del do
  redis.call("HDEL", key, ARGV[idx + i])
end

for i = 0, n_set - 1 do
  local pos = set_start + i * 2
  redis.call("HSET", key, ARGV[pos], ARGV[pos + 1])
end

return 1
`

var applyMutationLua = redis.NewScript(applyMutationScript)

// RedisBackend stores one client's key space in a single Redis hash. It suits
// kiosk and shared-terminal deployments where the session must outlive the
// process or be inspected centrally.
type RedisBackend struct {
	redis redis.UniversalClient
	key   string
}

// NewRedisBackend returns a backend storing fields in the hash
// "<prefix>:<clientID>".
func NewRedisBackend(client redis.UniversalClient, prefix, clientID string) *RedisBackend {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisBackend{
		redis: client,
		key:   prefix + ":" + clientID,
	}
}

func (b *RedisBackend) Key() string {
	return b.key
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]string, error) {
	data, err := b.redis.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return data, nil
}

// Apply runs the mutation as one Lua script so the expectation check and the
// writes cannot interleave with another client sharing the hash.
func (b *RedisBackend) Apply(ctx context.Context, m Mutation) error {
	args := make([]interface{}, 0, 3+2*len(m.Expect)+2*len(m.Set)+len(m.Delete))

	args = append(args, len(m.Expect))
	for k, v := range m.Expect {
		args = append(args, k, v)
	}
	args = append(args, len(m.Set))
	for k, v := range m.Set {
		args = append(args, k, v)
	}
	args = append(args, len(m.Delete))
	for _, k := range m.Delete {
		args = append(args, k)
	}

	status, err := applyMutationLua.Run(ctx, b.redis, []string{b.key}, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	switch status {
	case applyStatusApplied:
		return nil
	case applyStatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("%w: unknown apply script status %d", ErrBackendUnavailable, status)
	}
}
