package storage

import (
	"errors"
	"songbook/internal/providers"
)

// MetricsStore wraps a Store, counting hits, misses and failures and logging
// every failure. It never changes the result the caller sees.
type MetricsStore struct {
	inner   Store
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
}

func NewInstrumentedStore(inner Store, metrics providers.MetricsProviderInterface, logger providers.Logger) *MetricsStore {
	return &MetricsStore{inner: inner, metrics: metrics, logger: logger}
}

func (s *MetricsStore) Get(page, key string) (string, error) {
	val, err := s.inner.Get(page, key)
	switch {
	case err == nil:
		s.metrics.IncStoreHits()
	case errors.Is(err, ErrNotFound):
		s.metrics.IncStoreMisses()
	default:
		s.fail("get", page, err)
	}
	return val, err
}

func (s *MetricsStore) Set(page, key, value string) error {
	err := s.inner.Set(page, key, value)
	if err != nil {
		s.fail("set", page, err)
	}
	return err
}

func (s *MetricsStore) Remove(page, key string) error {
	err := s.inner.Remove(page, key)
	if err != nil {
		s.fail("remove", page, err)
	}
	return err
}

func (s *MetricsStore) Apply(page string, muts ...Mutation) error {
	err := s.inner.Apply(page, muts...)
	if err != nil {
		s.fail("apply", page, err)
	}
	return err
}

func (s *MetricsStore) Close() error {
	return s.inner.Close()
}

func (s *MetricsStore) Unwrap() Store {
	return s.inner
}

func (s *MetricsStore) fail(op, page string, err error) {
	s.metrics.IncStoreErrors(op)
	s.logger.Warnf(providers.TypeStore, "store %s failed for %s: %s", op, page, err)
}
