package services

import (
	"songbook/internal/providers"
	"songbook/internal/structures"

	"github.com/roylee0704/gron"
)

// Sweeper evicts idle players on an interval, so mounts from visitors who
// never send the unload beacon do not pile up.
type Sweeper struct {
	config  *structures.Config
	logger  providers.Logger
	players PlayerServiceInterface
	cron    *gron.Cron
}

func (s *Sweeper) Init() {
	idle := s.config.Players.IdleTimeout
	if idle <= 0 || s.config.Players.SweepInterval <= 0 {
		s.logger.Infof(providers.TypeApp, "Idle player eviction disabled")
		return
	}

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(s.config.Players.SweepInterval), func() {
		s.Sweep()
	})
	s.cron.Start()
}

// Sweep runs one eviction pass.
func (s *Sweeper) Sweep() int {
	n := s.players.EvictIdle(s.config.Players.IdleTimeout)
	if n > 0 {
		s.logger.Debugf(providers.TypeApp, "Sweep evicted %d players, %d still mounted", n, s.players.MountedCount())
	}
	return n
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func NewSweeper(config *structures.Config, logger providers.Logger, players PlayerServiceInterface) *Sweeper {
	return &Sweeper{
		config:  config,
		logger:  logger,
		players: players,
	}
}
