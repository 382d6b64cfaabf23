package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
)

// Redis holds the client behind ticket control state and the key namespace this
// deployment owns on it.
type Redis struct {
	Client      *redis.Client
	keyPrefix   string
	pingTimeout time.Duration
}

// NewRedis builds the client and checks it answers within the configured ping timeout.
// An unreachable server is logged rather than fatal; control buttons fail until it is back.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	r := &Redis{
		Client: redis.NewClient(&redis.Options{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.PingTimeout(),
		}),
		keyPrefix:   strings.TrimSuffix(cfg.KeyPrefix, ":"),
		pingTimeout: cfg.PingTimeout(),
	}

	if err := r.Ping(ctx); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.String("key_prefix", r.keyPrefix))
	}
	return r
}

// Namespace joins parts under the deployment's key prefix, so two bots can share a server.
func (r *Redis) Namespace(parts ...string) string {
	if r.keyPrefix == "" {
		return strings.Join(parts, ":")
	}
	return strings.Join(append([]string{r.keyPrefix}, parts...), ":")
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis answers before the ping timeout or ctx, whichever ends first.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	if r.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.pingTimeout)
		defer cancel()
	}
	return r.Client.Ping(ctx).Err()
}
