package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// ErrControlContended is returned when another interaction changed the control first.
var ErrControlContended = errors.New("control changed concurrently")

// ControlUpdate computes the next control state from the current one.
type ControlUpdate func(current domain.Control) (domain.Control, error)

// ControlRepository stores the state machines behind a ticket's controls.
type ControlRepository interface {
	Get(ctx context.Context, channelID snowflake.ID, kind domain.ControlKind) (domain.Control, error)
	Update(ctx context.Context, channelID snowflake.ID, kind domain.ControlKind, ttl time.Duration, fn ControlUpdate) (domain.Control, error)
	Clear(ctx context.Context, channelID snowflake.ID) error
}

type controlRepository struct {
	client *redis.Client
	prefix string
}

// NewControlRepository builds a Redis-backed repository keeping its keys under namespace.
func NewControlRepository(client *redis.Client, namespace string) ControlRepository {
	return &controlRepository{client: client, prefix: namespace}
}

// ControlKey is the Redis key for one control.
func ControlKey(prefix string, channelID snowflake.ID, kind domain.ControlKind) string {
	return fmt.Sprintf("%s:%s:%s", prefix, channelID.String(), kind)
}

func (r *controlRepository) Get(ctx context.Context, channelID snowflake.ID, kind domain.ControlKind) (domain.Control, error) {
	return r.read(ctx, r.client, channelID, kind)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *controlRepository) read(ctx context.Context, g getter, channelID snowflake.ID, kind domain.ControlKind) (domain.Control, error) {
	raw, err := g.Get(ctx, ControlKey(r.prefix, channelID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewControl(kind), nil
	}
	if err != nil {
		return domain.Control{}, err
	}
	var control domain.Control
	if err := json.Unmarshal(raw, &control); err != nil {
		return domain.Control{}, fmt.Errorf("decode control: %w", err)
	}
	return control, nil
}

// Update applies fn under WATCH so two interactions cannot both move a control out of
// the same state. A zero ttl keeps the key until Clear.
func (r *controlRepository) Update(ctx context.Context, channelID snowflake.ID, kind domain.ControlKind, ttl time.Duration, fn ControlUpdate) (domain.Control, error) {
	key := ControlKey(r.prefix, channelID, kind)
	var next domain.Control

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.read(ctx, tx, channelID, kind)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return err
		}
		next.Kind = kind
		next.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.Control{}, ErrControlContended
	}
	if err != nil {
		return domain.Control{}, err
	}
	return next, nil
}

func (r *controlRepository) Clear(ctx context.Context, channelID snowflake.ID) error {
	keys := []string{
		ControlKey(r.prefix, channelID, domain.ControlPriority),
		ControlKey(r.prefix, channelID, domain.ControlCallStaff),
	}
	return r.client.Del(ctx, keys...).Err()
}
