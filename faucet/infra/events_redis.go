package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"treasury-faucet/faucet/domain"
)

// RedisEvents persiste os eventos de auditoria em Redis: contadores por tipo
// e, opcionalmente, uma stream limitada com a trilha completa.
type RedisEvents struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por usuário.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackUsers bool

	stream       string
	streamMaxLen int64
}

type RedisEventsOption func(*RedisEvents)

func WithEventsPrefix(prefix string) RedisEventsOption {
	return func(s *RedisEvents) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithEventsTTL(d time.Duration) RedisEventsOption {
	return func(s *RedisEvents) { s.ttl = d }
}

func WithEventsBucket(bucket string) RedisEventsOption {
	return func(s *RedisEvents) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithEventsTrackUsers(track bool) RedisEventsOption {
	return func(s *RedisEvents) { s.trackUsers = track }
}

// WithEventsStream liga a trilha de auditoria em uma stream com tamanho máximo
// aproximado (XADD MAXLEN ~).
func WithEventsStream(stream string, maxLen int64) RedisEventsOption {
	return func(s *RedisEvents) {
		s.stream = strings.TrimSpace(stream)
		s.streamMaxLen = maxLen
	}
}

func NewRedisEvents(rdb *redis.Client, opts ...RedisEventsOption) *RedisEvents {
	s := &RedisEvents{
		rdb:    rdb,
		prefix: "treasury:events",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisEvents) Record(ctx context.Context, ev domain.Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	kind := string(ev.Kind)

	totalKey := s.prefix + ":total"

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, kind, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, kind, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackUsers && ev.User != (common.Address{}) {
		userKey := s.prefix + ":user:" + ev.User.Hex()
		pipe.HIncrBy(ctx, userKey, kind, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, userKey, s.ttl)
		}
	}

	if s.stream != "" {
		values := map[string]interface{}{
			"kind": kind,
			"at":   at.UTC().Format(time.RFC3339),
		}
		if ev.User != (common.Address{}) {
			values["user"] = ev.User.Hex()
		}
		if ev.Target != (common.Address{}) {
			values["target"] = ev.Target.Hex()
		}
		if ev.Amount != nil {
			values["amount"] = ev.Amount.String()
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.streamMaxLen,
			Approx: true,
			Values: values,
		})
	}

	_, err := pipe.Exec(ctx)
	return err
}
