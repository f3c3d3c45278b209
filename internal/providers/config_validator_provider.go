package providers

import (
	"errors"
	"songbook/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate checks struct tags first, then the rules that depend on the selected drivers.
func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return v.Errors
	}

	switch {
	case c.conf.Store.Driver == "redis" && c.conf.Store.RedisURL == "":
		return errors.New("store.redisURL is required for the redis driver")
	case c.conf.Store.Driver == "memory" && c.conf.Store.SizeMB <= 0:
		return errors.New("store.sizeMB must be positive for the memory driver")
	case c.conf.Album.Source == "file" && c.conf.Album.Dir == "":
		return errors.New("album.dir is required for the file source")
	case c.conf.Album.Source == "http" && c.conf.Album.BaseURL == "":
		return errors.New("album.baseURL is required for the http source")
	case c.conf.Playback.SeekEpsilon < 0:
		return errors.New("playback.seekEpsilon must not be negative")
	}
	return nil
}
