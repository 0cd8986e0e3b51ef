package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Channel platforms.
const (
	PlatformTelegram = "telegram"
	PlatformWhatsApp = "whatsapp"
)

// Session store backends.
const (
	SessionMemory = "memory"
	SessionValkey = "valkey"
)

var channelKeyRegexp = regexp.MustCompile(`^[a-z0-9_]{1,16}$`)

func init() {
	// Report field names as they are spelled in postbot.toml.
	validation.ErrorTag = "toml"
}

// Global represents ~/.postbot/config.toml.
type Global struct {
	DefaultProfile string `toml:"default_profile"`
}

// Config is the per-profile bot configuration (postbot.toml).
type Config struct {
	Timezone  string    `toml:"timezone"`
	Telegram  Telegram  `toml:"telegram"`
	Channels  []Channel `toml:"channels"`
	Dispatch  Dispatch  `toml:"dispatch"`
	Scheduler Scheduler `toml:"scheduler"`
	Session   Session   `toml:"session"`
	Workers   Workers   `toml:"workers"`
	WhatsApp  WhatsApp  `toml:"whatsapp"`

	loc *time.Location
}

type Telegram struct {
	Token  string  `toml:"token"`
	Admins []int64 `toml:"admins"`
}

// Channel is a broadcast channel posts can be published to. Key is the
// short stable handle used in callback payloads.
type Channel struct {
	Key      string `toml:"key"`
	Name     string `toml:"name"`
	ID       string `toml:"id"`
	Platform string `toml:"platform"`
}

type Dispatch struct {
	RichArticleHosts []string `toml:"rich_article_hosts"`
	SendTimeout      Duration `toml:"send_timeout"`
}

type Scheduler struct {
	Tick          Duration `toml:"tick"`
	MaxConcurrent int      `toml:"max_concurrent"`
}

type Session struct {
	Backend        string   `toml:"backend"`
	TTL            Duration `toml:"ttl"`
	ValkeyAddress  string   `toml:"valkey_address"`
	ValkeyPassword string   `toml:"valkey_password"`
	ValkeyDB       int      `toml:"valkey_db"`
}

type Workers struct {
	Count int `toml:"count"`
}

type WhatsApp struct {
	Enabled bool `toml:"enabled"`
}

// Duration is a time.Duration that round-trips through TOML as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadGlobal reads the global config. Returns error if the file is missing.
func LoadGlobal(path string) (*Global, error) {
	var g Global
	if _, err := toml.DecodeFile(path, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// SaveGlobal writes the global config, creating parent dirs as needed.
func SaveGlobal(path string, g *Global) error {
	return writeTOML(path, g)
}

// Load reads a profile config. A missing file yields the defaults so a
// deployment driven purely by environment variables still works. Values from
// the given .env files and the process environment override the file.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var existing []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	return cfg, nil
}

// Save writes a profile config to path with 0600 permissions.
func Save(path string, cfg *Config) error {
	return writeTOML(path, cfg)
}

func writeTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(v)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ApplyEnv overlays secrets and legacy channel variables from getenv.
// FIRST_CHANNEL and SECOND_CHANNEL only apply when no channels are configured.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := getenv("VALKEY_PASSWORD"); v != "" {
		c.Session.ValkeyPassword = v
	}
	if len(c.Channels) > 0 {
		return
	}
	if v := getenv("FIRST_CHANNEL"); v != "" {
		c.Channels = append(c.Channels, Channel{Key: "electronics", Name: "Electronics", ID: v, Platform: PlatformTelegram})
	}
	if v := getenv("SECOND_CHANNEL"); v != "" {
		c.Channels = append(c.Channels, Channel{Key: "fect", Name: "FECT", ID: v, Platform: PlatformTelegram})
	}
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Dispatch.RichArticleHosts == nil {
		c.Dispatch.RichArticleHosts = []string{"telegra.ph"}
	}
	if c.Dispatch.SendTimeout.Duration == 0 {
		c.Dispatch.SendTimeout.Duration = 30 * time.Second
	}
	if c.Scheduler.Tick.Duration == 0 {
		c.Scheduler.Tick.Duration = time.Second
	}
	if c.Scheduler.MaxConcurrent == 0 {
		c.Scheduler.MaxConcurrent = 4
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionMemory
	}
	if c.Session.TTL.Duration == 0 {
		c.Session.TTL.Duration = 24 * time.Hour
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 8
	}
	for i := range c.Channels {
		if c.Channels[i].Platform == "" {
			c.Channels[i].Platform = PlatformTelegram
		}
		if c.Channels[i].Name == "" {
			c.Channels[i].Name = c.Channels[i].Key
		}
	}
}

// Validate checks the configuration and resolves the timezone.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Timezone, validation.Required, validation.By(loadableTimezone)),
		validation.Field(&c.Telegram),
		validation.Field(&c.Channels, validation.Required, validation.By(uniqueChannelKeys)),
		validation.Field(&c.Session),
		validation.Field(&c.Workers),
	)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	c.loc = loc
	return nil
}

func (t Telegram) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Token, validation.Required.Error("is required (set BOT_TOKEN or [telegram] token)")),
	)
}

func (ch Channel) Validate() error {
	return validation.ValidateStruct(&ch,
		validation.Field(&ch.Key, validation.Required, validation.Match(channelKeyRegexp)),
		validation.Field(&ch.ID, validation.Required),
		validation.Field(&ch.Platform, validation.Required, validation.In(PlatformTelegram, PlatformWhatsApp)),
	)
}

func (s Session) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Backend, validation.Required, validation.In(SessionMemory, SessionValkey)),
		validation.Field(&s.ValkeyAddress, validation.When(s.Backend == SessionValkey, validation.Required)),
		validation.Field(&s.ValkeyDB, validation.Min(0)),
	)
}

func (w Workers) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Count, validation.Min(1), validation.Max(256)),
	)
}

func loadableTimezone(value any) error {
	name, _ := value.(string)
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("unknown timezone %q", name)
	}
	return nil
}

func uniqueChannelKeys(value any) error {
	channels, _ := value.([]Channel)
	seen := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if seen[ch.Key] {
			return fmt.Errorf("duplicate channel key %q", ch.Key)
		}
		seen[ch.Key] = true
	}
	return nil
}

// Location returns the timezone used to interpret schedule times.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Channel looks a channel up by key.
func (c *Config) Channel(key string) (Channel, bool) {
	for _, ch := range c.Channels {
		if ch.Key == key {
			return ch, true
		}
	}
	return Channel{}, false
}

// ChannelByID looks a channel up by its platform identifier.
func (c *Config) ChannelByID(id string) (Channel, bool) {
	for _, ch := range c.Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return Channel{}, false
}

// IsAdmin reports whether userID may use the bot. An empty admin list allows everyone.
func (c *Config) IsAdmin(userID int64) bool {
	if len(c.Telegram.Admins) == 0 {
		return true
	}
	for _, id := range c.Telegram.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPlatform reports whether any configured channel uses platform.
func (c *Config) HasPlatform(platform string) bool {
	for _, ch := range c.Channels {
		if ch.Platform == platform {
			return true
		}
	}
	return false
}
