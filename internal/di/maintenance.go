package di

import (
	"songbook/internal/gate"
	"songbook/internal/playback"
	"songbook/internal/player"
	"songbook/internal/providers"
	"songbook/internal/storage"
	"songbook/internal/storage/interfaces"
)

// Maintenance is the store plus its snapshot scheduler, for commands that edit
// stored state while the server is stopped.
type Maintenance struct {
	Store     storage.Store
	Scheduler interfaces.SchedulerInterface
	Logger    providers.Logger
}

// ResetPage clears the gate and playback state one device keeps for a page.
func (m *Maintenance) ResetPage(device, pagePath string) error {
	if err := m.Scheduler.Restore(); err != nil {
		return err
	}
	ns := player.Namespace(device, pagePath)
	if err := gate.Clear(m.Store, ns); err != nil {
		return err
	}
	if err := playback.Clear(m.Store, ns); err != nil {
		return err
	}
	m.Logger.Infof(providers.TypeApp, "reset stored state for %s", ns)
	return m.Scheduler.Persist()
}

func (m *Maintenance) Close() {
	_ = m.Store.Close()
	m.Logger.Close()
}
