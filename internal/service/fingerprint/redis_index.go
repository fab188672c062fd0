package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// recordScript adds the page to the member set and, only when it is new,
// increments the counter and appends to the bounded sample list. Running it
// as one script keeps the three writes atomic.
var recordScript = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 1 then
  redis.call('INCR', KEYS[2])
  if redis.call('LLEN', KEYS[3]) < tonumber(ARGV[2]) then
    redis.call('RPUSH', KEYS[3], ARGV[1])
  end
end
return redis.call('GET', KEYS[2])
`)

// RedisIndex keeps the reverse index in redis.
type RedisIndex struct {
	rdb         redis.UniversalClient
	prefix      string
	sampleLimit int
}

func NewRedisIndex(rdb redis.UniversalClient, prefix string, sampleLimit int) *RedisIndex {
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	if prefix == "" {
		prefix = "pagemill"
	}
	return &RedisIndex{rdb: rdb, prefix: prefix, sampleLimit: sampleLimit}
}

func (r *RedisIndex) keys(scope, section, hash string) (members, count, samples string) {
	// The hash tag keeps all three keys in one cluster slot.
	base := fmt.Sprintf("%s:fp:{%s|%s|%s}", r.prefix, scope, section, hash)
	return base + ":m", base + ":c", base + ":s"
}

func (r *RedisIndex) Record(ctx context.Context, occ Occurrence) (Entry, error) {
	if err := validate(occ); err != nil {
		return Entry{}, err
	}

	members, count, samples := r.keys(occ.Scope, occ.Section, occ.Hash)
	raw, err := recordScript.Run(ctx, r.rdb, []string{members, count, samples}, occ.PageID, r.sampleLimit).Text()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record fingerprint: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse fingerprint count %q: %w", raw, err)
	}

	ids, err := r.rdb.LRange(ctx, samples, 0, int64(r.sampleLimit-1)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read fingerprint samples: %w", err)
	}
	return Entry{Count: n, SampleIDs: ids}, nil
}

func (r *RedisIndex) Lookup(ctx context.Context, scope, section, hash string) (Entry, error) {
	if hash == "" {
		return Entry{}, ErrEmptyHash
	}

	_, count, samples := r.keys(scope, section, hash)
	pipe := r.rdb.Pipeline()
	countCmd := pipe.Get(ctx, count)
	samplesCmd := pipe.LRange(ctx, samples, 0, int64(r.sampleLimit-1))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("failed to read fingerprint: %w", err)
	}

	n, err := countCmd.Int()
	if errors.Is(err, redis.Nil) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to parse fingerprint count: %w", err)
	}
	return Entry{Count: n, SampleIDs: samplesCmd.Val()}, nil
}
