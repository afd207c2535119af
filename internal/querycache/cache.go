// Package querycache memoises backend reads in Redis behind per-namespace
// version counters.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Namespace groups cached reads that are invalidated together.
type Namespace string

// Namespaces mirroring the backend resources.
const (
	Customers Namespace = "customers"
	Sales     Namespace = "sales"
	Payments  Namespace = "payments"
	Settings  Namespace = "settings"
	Debts     Namespace = "debts"
)

const (
	// BumpChannel carries "namespace=version" invalidation events.
	BumpChannel = "ledger.cache.bump"
	// DefaultTTL keeps entries short-lived.
	DefaultTTL = 30 * time.Second

	keyPrefix = "ledger:cache"
)

// Cache wraps Redis based caching with versioning controls. A nil Cache or
// one without a client passes every read straight to its loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New instantiates the cache helper.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func versionKey(ns Namespace) string {
	return keyPrefix + ":version:" + string(ns)
}

// Version returns the namespace version, initialising when missing.
func (c *Cache) Version(ctx context.Context, ns Namespace) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey(ns)).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && ver <= 0) {
		// SetNX keeps a concurrent first bump from being overwritten.
		if err := c.client.SetNX(ctx, versionKey(ns), 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey(ns)).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes a key stamped with the version of every namespace the
// read depends on, so bumping any of them orphans the entry.
func (c *Cache) BuildKey(ctx context.Context, deps []Namespace, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteByte(':')
	b.WriteString(joined)
	for _, ns := range deps {
		ver, err := c.Version(ctx, ns)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, ":%s.%d", ns, ver)
	}
	return b.String(), nil
}

// FetchJSON loads a cached value or populates it using the loader.
// Redis read failures fall back to the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("querycache: loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx, loader, dest, nil)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if jerr := json.Unmarshal(payload, dest); jerr == nil {
			return nil
		}
		c.logger.Warn("querycache: discarding corrupt entry", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("querycache: read failed", slog.String("key", key), slog.Any("error", err))
		return load(ctx, loader, dest, nil)
	}
	return load(ctx, loader, dest, func(raw []byte) {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("querycache: write failed", slog.String("key", key), slog.Any("error", err))
		}
	})
}

func load(ctx context.Context, loader func(context.Context) (any, error), dest any, store func([]byte)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if store != nil {
		store(raw)
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate bumps the given namespaces and publishes one event each.
func (c *Cache) Invalidate(ctx context.Context, namespaces ...Namespace) error {
	if c == nil || c.client == nil {
		return nil
	}
	for _, ns := range namespaces {
		ver, err := c.client.Incr(ctx, versionKey(ns)).Result()
		if err != nil {
			return err
		}
		payload := string(ns) + "=" + strconv.FormatInt(ver, 10)
		if err := c.client.Publish(ctx, BumpChannel, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Listen subscribes to bump notifications from other processes and keeps
// local versions at least as new as the announced ones. onBump, when set,
// is called for every event.
func (c *Cache) Listen(ctx context.Context, onBump func(Namespace, int64)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ns, ver, ok := parseBump(msg.Payload)
				if !ok {
					c.logger.Warn("querycache: ignoring bump", slog.String("payload", msg.Payload))
					continue
				}
				current, err := c.client.Get(ctx, versionKey(ns)).Int64()
				if err != nil && !errors.Is(err, redis.Nil) {
					continue
				}
				if current < ver {
					_ = c.client.Set(ctx, versionKey(ns), ver, 0).Err()
				}
				if onBump != nil {
					onBump(ns, ver)
				}
			}
		}
	}()
	return nil
}

func parseBump(payload string) (Namespace, int64, bool) {
	name, raw, found := strings.Cut(payload, "=")
	if !found || name == "" {
		return "", 0, false
	}
	ver, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return Namespace(name), ver, true
}
