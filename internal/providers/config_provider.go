package providers

import (
	"fmt"
	"path/filepath"
	"songbook/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const AppName = "Songbook"

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.sizeMB", 16)
	v.SetDefault("store.redisPrefix", "songbook")
	v.SetDefault("store.redisTimeout", 2*time.Second)
	v.SetDefault("album.source", "file")
	v.SetDefault("album.fetchTimeout", 10*time.Second)
	v.SetDefault("gate.maxAttempts", 5)
	v.SetDefault("gate.lockDuration", 10*time.Minute)
	v.SetDefault("gate.countdownInterval", time.Second)
	v.SetDefault("playback.persistInterval", 1200*time.Millisecond)
	v.SetDefault("playback.seekEpsilon", 0.25)
	v.SetDefault("players.idleTimeout", 30*time.Minute)
	v.SetDefault("players.sweepInterval", time.Minute)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	v.BindEnv("logger.level", "SONGBOOK_LOG_LEVEL")
	v.BindEnv("store.driver", "SONGBOOK_STORE_DRIVER")
	v.BindEnv("store.redisURL", "SONGBOOK_REDIS_URL")
	v.BindEnv("album.dir", "SONGBOOK_ALBUM_DIR")
	v.BindEnv("album.baseURL", "SONGBOOK_ALBUM_BASE_URL")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
