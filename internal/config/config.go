package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/chatroom/internal/domain"
)

type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	StaticPath  string        `mapstructure:"static_path"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	Secret      string        `mapstructure:"secret"`
	AdminSecret string        `mapstructure:"admin_secret"`

	Rooms           []string      `mapstructure:"rooms"`
	MaxMembers      int           `mapstructure:"max_members"`
	LogWindow       int           `mapstructure:"log_window"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
	SweepPeriod     time.Duration `mapstructure:"sweep_period"`
	InactivityLimit time.Duration `mapstructure:"inactivity_limit"`
	GraceWindow     time.Duration `mapstructure:"grace_window"`
	TopicCooldown   time.Duration `mapstructure:"topic_cooldown"`
	HTTPRate        float64       `mapstructure:"http_rate"`
	HTTPBurst       int           `mapstructure:"http_burst"`
	FrameRate       float64       `mapstructure:"frame_rate"`
	FrameBurst      int           `mapstructure:"frame_burst"`

	Backpressure     string `mapstructure:"backpressure"`
	MaxDroppedFrames int    `mapstructure:"max_dropped_frames"`

	Store  StoreConfig             `mapstructure:"store"`
	Policy domain.ModerationPolicy `mapstructure:"policy"`
}

func setDefaults(v *viper.Viper) {
	def := domain.DefaultPolicy()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("admin_secret", "")

	v.SetDefault("rooms", []string{"lobby", "random", "games"})
	v.SetDefault("max_members", 10)
	v.SetDefault("log_window", 50)
	v.SetDefault("poll_timeout", "25s")
	v.SetDefault("sweep_period", "30s")
	v.SetDefault("inactivity_limit", "10m")
	v.SetDefault("grace_window", "10m")
	v.SetDefault("topic_cooldown", "30s")
	v.SetDefault("http_rate", 5.0)
	v.SetDefault("http_burst", 20)
	v.SetDefault("frame_rate", 10.0)
	v.SetDefault("frame_burst", 30)
	v.SetDefault("backpressure", "strike")
	v.SetDefault("max_dropped_frames", 8)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.dir", "./data")
	v.SetDefault("store.sqlite_path", "./data/chat.db")

	v.SetDefault("policy.max_length", def.MaxLength)
	v.SetDefault("policy.min_interval_ms", def.MinIntervalMs)
	v.SetDefault("policy.max_urls", def.MaxURLs)
	v.SetDefault("policy.block_pii", def.BlockPII)
	v.SetDefault("policy.banned_words", []string{})
	v.SetDefault("policy.banned_patterns", []string{})
	v.SetDefault("policy.blocked_domains", []string{})
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Every key can
// be overridden by CHAT_<KEY>, nested keys joined with an underscore.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Strs("rooms", cfg.Rooms).Str("store", cfg.Store.Backend).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.MaxMembers <= 0 {
		errs = append(errs, errors.New("max_members must be positive"))
	}
	if c.LogWindow <= 0 {
		errs = append(errs, errors.New("log_window must be positive"))
	}
	if c.PollTimeout <= 0 {
		errs = append(errs, errors.New("poll_timeout must be positive"))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, errors.New("ping_period must be positive"))
	}
	if c.SweepPeriod <= 0 {
		errs = append(errs, errors.New("sweep_period must be positive"))
	}
	switch c.Backpressure {
	case "strike", "kick", "tolerant":
	default:
		errs = append(errs, fmt.Errorf("unknown backpressure policy %q", c.Backpressure))
	}
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}
