// Package redis mirrors the latest published depth state into Redis so
// other processes can read it without sampling again.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/suwandre/pairdepth/internal/hub"
)

// ErrNoState is returned by Load when nothing has been mirrored yet.
var ErrNoState = errors.New("redis: no mirrored state")

// writeTimeout bounds every mirror write.
const writeTimeout = 2 * time.Second

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
	// Prefix namespaces the keys, e.g. "pairdepth".
	Prefix string
}

// Mirror keeps one key holding the latest state as JSON and publishes
// every new state on a channel. Only the latest state is kept.
//
// Key schema:
//
//	{prefix}:{exchange}:state   - JSON encoded hub.State
//	{prefix}:{exchange}:updates - pub/sub channel, same payload
type Mirror struct {
	rdb    *redis.Client
	prefix string
}

// New connects and pings Redis.
func New(ctx context.Context, cfg ClientConfig) (*Mirror, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "pairdepth"
	}
	return &Mirror{rdb: rdb, prefix: prefix}, nil
}

func stateKey(prefix, exchange string) string   { return prefix + ":" + exchange + ":state" }
func updatesKey(prefix, exchange string) string { return prefix + ":" + exchange + ":updates" }

// encodeState renders a state for storage. Finished passes only; running
// states are skipped to avoid a write per market.
func encodeState(s hub.State) ([]byte, bool, error) {
	if s.Running || s.RunID == "" {
		return nil, false, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, false, fmt.Errorf("redis: marshal state %s: %w", s.RunID, err)
	}
	return data, true, nil
}

// Store writes one state and announces it.
func (m *Mirror) Store(ctx context.Context, s hub.State) error {
	data, ok, err := encodeState(s)
	if err != nil || !ok {
		return err
	}

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, stateKey(m.prefix, s.Exchange), data, 0)
	pipe.Publish(ctx, updatesKey(m.prefix, s.Exchange), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store state %s: %w", s.RunID, err)
	}
	return nil
}

// Load reads the last mirrored state for an exchange, so a restarted
// process can serve the previous rows before its first pass ends.
func (m *Mirror) Load(ctx context.Context, exchange string) (hub.State, error) {
	data, err := m.rdb.Get(ctx, stateKey(m.prefix, exchange)).Bytes()
	if errors.Is(err, redis.Nil) {
		return hub.State{}, ErrNoState
	}
	if err != nil {
		return hub.State{}, fmt.Errorf("redis: load state %s: %w", exchange, err)
	}

	var s hub.State
	if err := json.Unmarshal(data, &s); err != nil {
		return hub.State{}, fmt.Errorf("redis: unmarshal state %s: %w", exchange, err)
	}
	return s, nil
}

// Run subscribes to h and mirrors every finished state until ctx is done
// or the hub closes.
func (m *Mirror) Run(ctx context.Context, h *hub.Hub) {
	updates, cancel := h.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			if err := m.Store(wctx, s); err != nil {
				log.Warn().Err(err).Str("run_id", s.RunID).Msg("failed to mirror depth state")
			}
			wcancel()
		}
	}
}

// Close closes the Redis connection.
func (m *Mirror) Close() error {
	return m.rdb.Close()
}
