package state

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis reads state from one hash per conversation (prefix + conversation id).
type Redis struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger
}

type Option func(*Redis)

// WithPrefix sets the key prefix for conversation hashes.
func WithPrefix(prefix string) Option {
	return func(r *Redis) { r.prefix = prefix }
}

// WithTTL sets the expiration applied by Set. Zero keeps hashes forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *Redis) { r.ttl = ttl }
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(r *Redis) { r.timeout = d }
}

// WithLogger sets the logger used to report lookup failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Redis) { r.log = l }
}

// NewRedis connects to addr.
func NewRedis(addr, password string, db int, opts ...Option) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, opts ...Option) *Redis {
	r := &Redis{
		client:  client,
		prefix:  "llamachat:state:",
		timeout: 500 * time.Millisecond,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(conversationID string) string {
	return r.prefix + conversationID
}

// GetState falls back to def when no conversation id is set, the field is
// missing or empty, or Redis fails.
func (r *Redis) GetState(ctx context.Context, key, def string) string {
	id := ConversationID(ctx)
	if id == "" {
		return def
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	v, err := r.client.HGet(ctx, r.key(id), key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("conversation", id).Str("key", key).Msg("state lookup failed")
		}
		return def
	}
	if v == "" {
		return def
	}
	return v
}

// Set writes key for a conversation and refreshes the hash TTL.
func (r *Redis) Set(ctx context.Context, conversationID, key, value string) error {
	k := r.key(conversationID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k, key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
