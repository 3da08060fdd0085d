package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/Haibread/voicekeep/voice"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ClickChannel is a click-to-create channel declared in the config file.
type ClickChannel struct {
	ChannelID    string `mapstructure:"channel_id"`
	NameTemplate string `mapstructure:"name_template"`
	NameDefault  string `mapstructure:"name_default"`
}

type Config struct {
	Token             string            `mapstructure:"token"`
	BotStatus         string            `mapstructure:"bot_status"`
	GuildID           string            `mapstructure:"guild_id"`
	ClickChannels     []ClickChannel    `mapstructure:"click_channels"`
	CommandChannelIDs []string          `mapstructure:"command_channel_ids"`
	GraceWindow       time.Duration     `mapstructure:"grace_window"`
	SweepInterval     time.Duration     `mapstructure:"sweep_interval"`
	DatabasePath      string            `mapstructure:"database_path"`
	MetricsAddr       string            `mapstructure:"metrics_addr"`
	LogLevel          string            `mapstructure:"log_level"`
	RoleMapping       map[string]string `mapstructure:"role_mapping"`
}

// Loader reads the config file and keeps watching it for changes.
type Loader struct {
	v *viper.Viper
}

// NewLoader looks for config.yaml in the given paths, or the working
// directory when none are given. Environment variables prefixed with
// VOICEKEEP_ override file values. Lists are comma separated and
// role_mapping is written as "B-=900,MI-=901".
func NewLoader(paths ...string) *Loader {
	v := viper.New()
	v.SetDefault("token", "")
	v.SetDefault("bot_status", "Managing voice channels")
	v.SetDefault("grace_window", voice.DefaultGraceWindow)
	v.SetDefault("sweep_interval", voice.DefaultSweepInterval)
	v.SetDefault("database_path", "channels.db")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("voicekeep")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are unknown to viper until bound.
	for _, key := range []string{"guild_id", "command_channel_ids", "role_mapping"} {
		_ = v.BindEnv(key)
	}
	return &Loader{v: v}
}

// Load reads and validates the config. A missing file is tolerated when the
// token comes from the environment.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

// Watch calls onChange with the reloaded config whenever the file changes.
// Invalid reloads are reported through onError and otherwise ignored.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			onError(fmt.Errorf("reload %v: %w", e.Name, err))
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToMapHook,
	))
	if err := l.v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// stringToMapHook decodes "k1=v1,k2=v2" into a map[string]string.
func stringToMapHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(map[string]string{}) {
		return data, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(data.(string), ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid map entry %q, want key=value", pair)
		}
		out[k] = v
	}
	return out, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("token is required")
	}
	if c.GraceWindow <= 0 {
		return fmt.Errorf("grace_window must be positive, got %v", c.GraceWindow)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %v", c.SweepInterval)
	}
	for i, cc := range c.ClickChannels {
		if cc.ChannelID == "" {
			return fmt.Errorf("click_channels[%d]: channel_id is required", i)
		}
		if err := voice.ValidateTemplate(cc.NameTemplate); err != nil {
			return fmt.Errorf("click_channels[%d]: invalid name_template: %w", i, err)
		}
	}
	return nil
}

// Triggers converts the configured click channels.
func (c *Config) Triggers() []voice.Trigger {
	out := make([]voice.Trigger, 0, len(c.ClickChannels))
	for _, cc := range c.ClickChannels {
		out = append(out, voice.Trigger{
			ChannelID:    cc.ChannelID,
			GuildID:      c.GuildID,
			NameTemplate: cc.NameTemplate,
			NameDefault:  cc.NameDefault,
		})
	}
	return out
}

// CommandChannelAllowed reports whether voice commands may be used in the
// channel. An empty allow list permits every channel.
func (c *Config) CommandChannelAllowed(channelID string) bool {
	if len(c.CommandChannelIDs) == 0 {
		return true
	}
	for _, id := range c.CommandChannelIDs {
		if id == channelID {
			return true
		}
	}
	return false
}
