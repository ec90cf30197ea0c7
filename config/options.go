package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Options are the runtime options of the application. They are read from an
// optional options file and from KEYSOUND_* environment variables.
type Options struct {
	// Document is the path of the scene document. Empty means DefaultPath.
	Document string          `mapstructure:"document"`
	Locale   string          `mapstructure:"locale"`
	Log      LogOptions      `mapstructure:"log"`
	Cache    CacheOptions    `mapstructure:"cache"`
	Audio    AudioOptions    `mapstructure:"audio"`
	Playback PlaybackOptions `mapstructure:"playback"`
	Status   StatusOptions   `mapstructure:"status"`
}

type LogOptions struct {
	Level string `mapstructure:"level"`
}

type CacheOptions struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type AudioOptions struct {
	Enabled    bool          `mapstructure:"enabled"`
	SampleRate int           `mapstructure:"sample_rate"`
	Buffer     time.Duration `mapstructure:"buffer"`
}

type PlaybackOptions struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type StatusOptions struct {
	Revert time.Duration `mapstructure:"revert"`
}

// LoadOptions reads options. file may name an options file explicitly;
// otherwise options.toml in the application config directory is used if
// present. Env var overrides use prefix KEYSOUND_.
func LoadOptions(file string) (Options, error) {
	v := viper.New()

	v.SetDefault("document", "")
	v.SetDefault("locale", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.buffer", 100*time.Millisecond)
	v.SetDefault("playback.poll_interval", 100*time.Millisecond)
	v.SetDefault("status.revert", 2*time.Second)

	v.SetConfigType("toml")
	if file == "" {
		file = os.Getenv("KEYSOUND_OPTIONS")
	}
	if file != "" {
		v.SetConfigFile(file)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, appName))
		v.SetConfigName("options")
	}

	v.SetEnvPrefix("KEYSOUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return Options{}, fmt.Errorf("read options: %w", err)
		}
	}

	var o Options
	if err := v.Unmarshal(&o); err != nil {
		return Options{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return o, o.resolve()
}

// resolve fills in paths that depend on the user config directory.
func (o *Options) resolve() error {
	if o.Document == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		o.Document = p
	}
	if o.Cache.Dir == "" {
		o.Cache.Dir = filepath.Join(filepath.Dir(o.Document), "cache")
	}
	return nil
}
