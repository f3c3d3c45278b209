package storage

import (
	"songbook/internal/providers"
	"songbook/internal/storage/interfaces"
	"songbook/internal/structures"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

// Scheduler snapshots the memory store on an interval. For drivers that
// persist on their own (redis) every method is a no-op.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	fileManager *FileManager
	metrics     providers.MetricsProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	if s.fileManager == nil {
		s.logger.Infof(providers.TypeStore, "Store driver %s persists itself, snapshots disabled", s.config.Store.Driver)
		return
	}

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		if err := s.save(); err != nil {
			s.logger.Errorf(providers.TypeStore, "Error while persisting store: %s", err)
			return
		}
		s.logger.Debugf(providers.TypeStore, "Persisted store to file %s", s.config.Persistence.FilePath)
	})
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	if s.fileManager == nil {
		return nil
	}
	return s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	if s.fileManager == nil {
		return nil
	}

	s.logger.Infof(providers.TypeStore, "Persisting store to file...")
	err := s.save()
	if err != nil {
		s.logger.Errorf(providers.TypeStore, "Error while persisting store: %s", err)
		return err
	}
	return nil
}

func (s *Scheduler) save() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	return err
}

func NewScheduler(config *structures.Config, logger providers.Logger, store Store, compressor interfaces.CompressorInterface, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	s := &Scheduler{
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
	if snap, ok := AsSnapshotter(store); ok {
		s.fileManager = NewFileManager(compressor, snap, logger)
	}
	return s
}
