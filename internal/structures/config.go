package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" validate:"required|in:sqlite,postgres"`
	Dsn    string `yaml:"dsn" validate:"required"`
}

type CounterConfig struct {
	Timezone string `yaml:"timezone" validate:"required"`
}

type PresenceConfig struct {
	OnlineWindow  time.Duration `yaml:"onlineWindow" validate:"required|min:1"`
	SweepEnabled  bool          `yaml:"sweepEnabled"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

type ActivityConfig struct {
	RecentLimit   int           `yaml:"recentLimit" validate:"required|min:1"`
	RecentWindow  time.Duration `yaml:"recentWindow" validate:"required|min:1"`
	MaxLimit      int           `yaml:"maxLimit" validate:"required|min:1"`
	Retention     time.Duration `yaml:"retention"`
	ArchiveDir    string        `yaml:"archiveDir"`
	PruneInterval time.Duration `yaml:"pruneInterval"`
}

type AdminConfig struct {
	Identities []string `yaml:"identities"`
}

// AuthConfig maps bearer tokens to stable user keys.
type AuthConfig struct {
	Enabled bool              `yaml:"enabled"`
	Tokens  map[string]string `yaml:"tokens"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type StreamConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Storage   StorageConfig  `yaml:"storage"`
	Counter   CounterConfig  `yaml:"counter"`
	Presence  PresenceConfig `yaml:"presence"`
	Activity  ActivityConfig `yaml:"activity"`
	Admin     AdminConfig    `yaml:"admin"`
	Auth      AuthConfig     `yaml:"auth"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Stream    StreamConfig   `yaml:"stream"`
}
