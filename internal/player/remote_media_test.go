package player

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteMedia_QueuesCommands(t *testing.T) {
	m := NewRemoteMedia()
	assert.True(t, m.Paused())

	m.SetSource("a.mp3")
	m.Seek(12)
	assert.NoError(t, m.Play())
	m.Pause()

	assert.Equal(t, []Command{
		{Op: OpSource, Src: "a.mp3"},
		{Op: OpSeek, Time: 12},
		{Op: OpPlay},
		{Op: OpPause},
	}, m.Drain())
	assert.Empty(t, m.Drain())
	assert.NotNil(t, m.Drain())
}

func TestRemoteMedia_Update(t *testing.T) {
	m := NewRemoteMedia()
	m.Update(Report{CurrentTime: 42.5, Duration: math.Inf(1), Paused: false})

	assert.Equal(t, 42.5, m.CurrentTime())
	assert.Equal(t, 0.0, m.Duration())
	assert.False(t, m.Paused())

	m.Update(Report{CurrentTime: math.NaN(), Duration: 180, Paused: true})
	assert.Equal(t, 0.0, m.CurrentTime())
	assert.Equal(t, 180.0, m.Duration())

	m.SetSource("b.mp3")
	assert.Equal(t, "b.mp3", m.Source())
	assert.Equal(t, 0.0, m.Duration())
	assert.True(t, m.Paused())
}
