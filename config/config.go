// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/bvk/supplybot/browser"
	"github.com/bvk/supplybot/pushover"
	"github.com/bvk/supplybot/telegram"
	"github.com/bvk/supplybot/tracker"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file name in the current directory.
const DefaultPath = "supplybot.yaml"

type Config struct {
	Launch   Launch           `yaml:"launch"`
	Telegram telegram.Secrets `yaml:"telegram"`
	Pushover pushover.Keys    `yaml:"pushover"`
	Tracking Tracking         `yaml:"tracking"`
	Browser  Browser          `yaml:"browser"`
	HTTP     HTTP             `yaml:"http"`
	Log      Log              `yaml:"log"`
}

type Launch struct {
	// FirstRun when true requires the login command before the tracker can
	// run.
	FirstRun bool `yaml:"first_run"`

	TelegramNotifications bool `yaml:"telegram_notifications"`
	PushoverNotifications bool `yaml:"pushover_notifications"`

	// Open when true opens the supplies with new dates in the browser.
	Open bool `yaml:"open"`

	// Verbose when true logs the full content of every update.
	Verbose bool `yaml:"verbose"`
}

type Tracking struct {
	Days            int           `yaml:"days"`
	Interval        time.Duration `yaml:"interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// RequestsPerSecond limits the supply api request rate.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type Browser struct {
	ExecPath string `yaml:"exec_path"`
	Port     int    `yaml:"port"`

	// UserDataDir is resolved against the current directory when relative.
	UserDataDir string `yaml:"user_data_dir"`

	Headless  bool `yaml:"headless"`
	Sandbox   bool `yaml:"sandbox"`
	Incognito bool `yaml:"incognito"`

	// CacheEnabled when false disables the network cache on every page.
	CacheEnabled bool `yaml:"cache_enabled"`

	// ExtensionDir is the unpacked command extension directory. The bundled
	// extension is installed here when the directory has none. Relative paths
	// are resolved against the current directory.
	ExtensionDir string `yaml:"extension_dir"`

	// Extensions are other unpacked extension directories.
	Extensions []string `yaml:"extensions"`

	// Proxy is in host:port or user:password@host:port form.
	Proxy string `yaml:"proxy"`

	Args []string `yaml:"args"`

	LaunchTimeout  time.Duration `yaml:"launch_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Timings Timings `yaml:"timings"`
}

// Timings are the browser settle delays.
type Timings struct {
	LaunchSettle      time.Duration `yaml:"launch_settle"`
	ProxySettle       time.Duration `yaml:"proxy_settle"`
	ActionSettle      time.Duration `yaml:"action_settle"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
}

type HTTP struct {
	// Addr is the status server address. Empty disables the server.
	Addr string `yaml:"addr"`
}

type Log struct {
	// Dir when non-empty enables the file logs in the directory.
	Dir string `yaml:"dir"`

	Debug bool `yaml:"debug"`
}

// Default returns the configuration used for the missing fields.
func Default() *Config {
	return &Config{
		Launch: Launch{
			FirstRun:              true,
			TelegramNotifications: true,
			Verbose:               true,
		},
		Tracking: Tracking{
			Days:              14,
			Interval:          5 * time.Second,
			RefreshInterval:   60 * time.Minute,
			RequestsPerSecond: 5,
		},
		Browser: Browser{
			Port:           8889,
			UserDataDir:    "user_data",
			CacheEnabled:   true,
			ExtensionDir:   "extension",
			LaunchTimeout:  1500 * time.Millisecond,
			RequestTimeout: 2 * time.Second,
			Timings: Timings{
				LaunchSettle:      280 * time.Millisecond,
				ProxySettle:       180 * time.Millisecond,
				ActionSettle:      80 * time.Millisecond,
				NavigationTimeout: 1400 * time.Millisecond,
			},
		},
		HTTP: HTTP{
			Addr: "127.0.0.1:8890",
		},
	}
}

// Load reads the configuration file. Fields missing in the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	c := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("could not parse config file %q: %w", path, err)
	}
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return c, nil
}

// Save writes the configuration into the file atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("could not yaml-encode the config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// InitIfMissing writes the default configuration file with comments when the
// file does not exist. Returns true if the file is created.
func InitIfMissing(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("could not stat config file %q: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return false, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultFile), 0600); err != nil {
		return false, fmt.Errorf("could not write config file %q: %w", path, err)
	}
	return true, nil
}

func (c *Config) Check() error {
	if c.Launch.TelegramNotifications && len(c.Telegram.BotToken) != 0 {
		if err := c.Telegram.Check(); err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
	}
	if c.Launch.PushoverNotifications {
		if err := c.Pushover.Check(); err != nil {
			return fmt.Errorf("pushover: %w", err)
		}
	}
	if len(c.Browser.Proxy) != 0 {
		if _, err := browser.ParseProxy(c.Browser.Proxy); err != nil {
			return fmt.Errorf("browser: %w", err)
		}
	}
	if len(c.HTTP.Addr) != 0 {
		if _, err := net.ResolveTCPAddr("tcp", c.HTTP.Addr); err != nil {
			return fmt.Errorf("http: invalid address %q: %w", c.HTTP.Addr, os.ErrInvalid)
		}
	}
	bopts, err := c.BrowserOptions()
	if err != nil {
		return err
	}
	if err := bopts.Check(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	topts, err := c.TrackerOptions()
	if err != nil {
		return err
	}
	return topts.Check()
}

// TelegramEnabled returns true if telegram notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Launch.TelegramNotifications && len(c.Telegram.BotToken) != 0
}

func absPath(name, dir string) (string, error) {
	if len(dir) == 0 {
		return "", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not determine %s %q absolute path: %w", name, dir, err)
	}
	return abs, nil
}

// BrowserOptions returns the browser launch options. Relative profile and
// extension directories are resolved against the current directory.
func (c *Config) BrowserOptions() (*browser.Options, error) {
	dataDir, err := absPath("user-data-dir", c.Browser.UserDataDir)
	if err != nil {
		return nil, err
	}
	extDir, err := absPath("extension-dir", c.Browser.ExtensionDir)
	if err != nil {
		return nil, err
	}
	var exts []string
	for _, dir := range c.Browser.Extensions {
		abs, err := absPath("extension", dir)
		if err != nil {
			return nil, err
		}
		exts = append(exts, abs)
	}
	opts := &browser.Options{
		ExecPath:            c.Browser.ExecPath,
		UserDataDir:         dataDir,
		Args:                c.Browser.Args,
		Headless:            c.Browser.Headless,
		Sandbox:             c.Browser.Sandbox,
		Incognito:           c.Browser.Incognito,
		CommandExtensionDir: extDir,
		Extensions:          exts,
		Port:                c.Browser.Port,
		LaunchTimeout:       c.Browser.LaunchTimeout,
		RequestTimeout:      c.Browser.RequestTimeout,
		DisableCache:        !c.Browser.CacheEnabled,
		Timings: browser.Timings{
			LaunchSettle:      c.Browser.Timings.LaunchSettle,
			ProxySettle:       c.Browser.Timings.ProxySettle,
			ActionSettle:      c.Browser.Timings.ActionSettle,
			NavigationTimeout: c.Browser.Timings.NavigationTimeout,
		},
	}
	return opts, nil
}

// TrackerOptions returns the tracker options.
func (c *Config) TrackerOptions() (*tracker.Options, error) {
	opts := &tracker.Options{
		Interval:        c.Tracking.Interval,
		RefreshInterval: c.Tracking.RefreshInterval,
		Days:            c.Tracking.Days,
	}
	opts.Client.RequestsPerSecond = c.Tracking.RequestsPerSecond
	if len(c.Browser.Proxy) != 0 {
		p, err := browser.ParseProxy(c.Browser.Proxy)
		if err != nil {
			return nil, err
		}
		opts.Proxy = p
	}
	return opts, nil
}

const defaultFile = `# Launch options.
launch:
  # Requires the "login" command to sign into seller.wildberries.ru before
  # tracking can start.
  first_run: true
  # Send notifications through the Telegram bot.
  telegram_notifications: true
  # Send notifications through the Pushover service.
  pushover_notifications: false
  # Open the supplies with new dates in the browser.
  open: false
  # Log the full content of every update.
  verbose: true

# Telegram bot parameters. Users must message the bot once to receive
# notifications.
telegram:
  token: ""
  owner: ""
  admin: ""
  others: []

# Pushover keys.
pushover:
  app: ""
  user: ""

# Supply tracking parameters.
tracking:
  # Number of days, starting today, to track.
  days: 14
  # Delay between successive polls.
  interval: 5s
  # Delay between refreshes of the cookies and the authorizev3 token.
  refresh_interval: 1h
  requests_per_second: 5

# Browser parameters.
browser:
  exec_path: ""
  port: 8889
  # Profile directory; relative paths are resolved against the current
  # directory.
  user_data_dir: user_data
  headless: false
  sandbox: false
  incognito: false
  cache_enabled: true
  # Command extension directory; the bundled extension is installed here when
  # the directory has none.
  extension_dir: extension
  # Other unpacked extension directories.
  extensions: []
  proxy: ""
  args: []
  launch_timeout: 1.5s
  request_timeout: 2s
  # Settle delays used in place of completion signals.
  timings:
    launch_settle: 280ms
    proxy_settle: 180ms
    action_settle: 80ms
    navigation_timeout: 1.4s

# Status server. Empty address disables it.
http:
  addr: 127.0.0.1:8890

# File logs. Empty directory logs to the standard error only.
log:
  dir: ""
  debug: false
`
