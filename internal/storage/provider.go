package storage

import (
	"context"
	"fmt"
	"songbook/internal/providers"
	"songbook/internal/structures"
	"time"
)

const defaultRedisTimeout = 2 * time.Second

// NewStoreProvider builds the configured driver wrapped with metrics. pinned
// only matters to the memory driver; redis does not evict unless told to.
func NewStoreProvider(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, pinned PinnedKeys) (Store, error) {
	var inner Store
	switch conf.Store.Driver {
	case "memory":
		inner = NewMemoryStore(conf.Store.SizeMB, pinned...)
	case "redis":
		timeout := conf.Store.RedisTimeout
		if timeout <= 0 {
			timeout = defaultRedisTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rs, err := NewRedisStore(ctx, conf.Store.RedisURL, conf.Store.RedisPrefix, timeout)
		if err != nil {
			return nil, err
		}
		inner = rs
	default:
		return nil, fmt.Errorf("unknown store driver %q", conf.Store.Driver)
	}

	logger.Infof(providers.TypeStore, "Store driver %s ready", conf.Store.Driver)
	return NewInstrumentedStore(inner, metrics, logger), nil
}
