package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"tally/internal/structures"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "./logs")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "tally.db")
	v.SetDefault("counter.timezone", "UTC")
	v.SetDefault("presence.onlineWindow", 30*time.Second)
	v.SetDefault("presence.sweepInterval", time.Minute)
	v.SetDefault("activity.recentLimit", 10)
	v.SetDefault("activity.recentWindow", 5*time.Minute)
	v.SetDefault("activity.maxLimit", 100)
	v.SetDefault("activity.pruneInterval", time.Hour)
	v.SetDefault("cache.ttl", time.Second)
	v.SetDefault("stream.interval", time.Second)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	_ = godotenv.Load(".env", ".env.local")

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	_ = v.BindEnv("logger.level", "TALLY_LOG_LEVEL")
	_ = v.BindEnv("storage.driver", "TALLY_STORAGE_DRIVER")
	_ = v.BindEnv("storage.dsn", "TALLY_STORAGE_DSN")
	_ = v.BindEnv("cache.enabled", "TALLY_CACHE_ENABLED")
	_ = v.BindEnv("counter.timezone", "TALLY_TIMEZONE")

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

	conf.AppName = "Tally"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
