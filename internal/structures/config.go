package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode       uint32 `yaml:"mode" validate:"required|uint"`
	Dir        string `yaml:"dir" validate:"required|unixPath"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// StoreConfig selects the key-value backend visitor state is kept in.
// The memory driver is bounded by SizeMB and snapshotted to Persistence.FilePath.
type StoreConfig struct {
	Driver       string        `yaml:"driver" validate:"required|in:memory,redis"`
	SizeMB       int           `yaml:"sizeMB"`
	RedisURL     string        `yaml:"redisURL"`
	RedisPrefix  string        `yaml:"redisPrefix"`
	RedisTimeout time.Duration `yaml:"redisTimeout"`
}

type AlbumConfig struct {
	Source       string        `yaml:"source" validate:"required|in:file,http"`
	Dir          string        `yaml:"dir"`
	BaseURL      string        `yaml:"baseURL"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
}

type GateConfig struct {
	MaxAttempts       int           `yaml:"maxAttempts" validate:"required|min:1"`
	LockDuration      time.Duration `yaml:"lockDuration" validate:"required|min:1"`
	CountdownInterval time.Duration `yaml:"countdownInterval"`
}

type PlaybackConfig struct {
	PersistInterval time.Duration `yaml:"persistInterval" validate:"required|min:1"`
	SeekEpsilon     float64       `yaml:"seekEpsilon"`
}

// PlayersConfig bounds how long a mounted player outlives its last request.
type PlayersConfig struct {
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server         `yaml:"webServer"`
	Persistence Persistence    `yaml:"persistence"`
	Logger      LoggerConfig   `yaml:"logger"`
	Store       StoreConfig    `yaml:"store"`
	Album       AlbumConfig    `yaml:"album"`
	Gate        GateConfig     `yaml:"gate"`
	Playback    PlaybackConfig `yaml:"playback"`
	Players     PlayersConfig  `yaml:"players"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}
