package services

import (
	"context"
	"errors"
	"songbook/internal/player"
	"songbook/internal/providers"
	"time"
)

var ErrNotMounted = errors.New("player not mounted")

type PlayerServiceInterface interface {
	Mount(ctx context.Context, device, pageURL string) (*player.Player, error)
	Get(device, pagePath string) (*player.Player, error)
	Unmount(device, pagePath string) error
	UnmountAll()
	EvictIdle(maxIdle time.Duration) int
	MountedCount() int
}

type PlayerService struct {
	registry *Registry
	mounter  *player.Mounter
	logger   providers.Logger
}

// Mount mounts the page for device, replacing and unloading any player already
// mounted there (a reload of the same page).
func (ps *PlayerService) Mount(ctx context.Context, device, pageURL string) (*player.Player, error) {
	p, err := ps.mounter.Mount(ctx, device, pageURL)
	if err != nil {
		return nil, err
	}
	if prev := ps.registry.put(player.Namespace(device, p.Path()), p); prev != nil {
		prev.Unload()
	}
	ps.logger.Debugf(providers.TypeApp, "mounted %s for %s", p.Path(), device)
	return p, nil
}

func (ps *PlayerService) Get(device, pagePath string) (*player.Player, error) {
	p, ok := ps.registry.get(player.Namespace(device, pagePath))
	if !ok {
		return nil, ErrNotMounted
	}
	return p, nil
}

// Unmount writes the final position and forgets the player.
func (ps *PlayerService) Unmount(device, pagePath string) error {
	p, ok := ps.registry.remove(player.Namespace(device, pagePath))
	if !ok {
		return ErrNotMounted
	}
	p.Unload()
	return nil
}

func (ps *PlayerService) UnmountAll() {
	players := ps.registry.drain()
	for _, p := range players {
		p.Unload()
	}
	if len(players) > 0 {
		ps.logger.Infof(providers.TypeApp, "unmounted %d players", len(players))
	}
}

// EvictIdle unmounts players nobody has used for maxIdle, writing their final
// position on the way out. A visitor coming back simply mounts again.
func (ps *PlayerService) EvictIdle(maxIdle time.Duration) int {
	players := ps.registry.removeIdle(maxIdle)
	for _, p := range players {
		p.Unload()
	}
	if len(players) > 0 {
		ps.logger.Infof(providers.TypeApp, "evicted %d idle players", len(players))
	}
	return len(players)
}

func (ps *PlayerService) MountedCount() int {
	return ps.registry.MountedCount()
}

func NewPlayerService(registry *Registry, mounter *player.Mounter, logger providers.Logger) PlayerServiceInterface {
	return &PlayerService{
		registry: registry,
		mounter:  mounter,
		logger:   logger,
	}
}
