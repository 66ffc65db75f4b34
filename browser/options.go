// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultArgs is the baseline command-line argument set for every browser
// process. Options.Args replaces it when non-empty.
var DefaultArgs = []string{
	"--disable-default-apps",
	"--no-first-run",
	"--disable-sync",
	"--lang=en_US",
	"--no-default-browser-check",
	"--disable-smooth-scrolling",
	"--disable-features=TranslateUI",
}

// Timings holds the settle delays used in place of completion signals.
type Timings struct {
	// LaunchSettle is the wait after the browser is started and before it is
	// handed to the caller.
	LaunchSettle time.Duration

	// ProxySettle is the wait after a set-proxy command.
	ProxySettle time.Duration

	// ActionSettle is the wait after all other extension commands.
	ActionSettle time.Duration

	// NavigationTimeout bounds the best-effort navigation in Open.
	NavigationTimeout time.Duration
}

func (v *Timings) setDefaults() {
	if v.LaunchSettle == 0 {
		v.LaunchSettle = 280 * time.Millisecond
	}
	if v.ProxySettle == 0 {
		v.ProxySettle = 180 * time.Millisecond
	}
	if v.ActionSettle == 0 {
		v.ActionSettle = 80 * time.Millisecond
	}
	if v.NavigationTimeout == 0 {
		v.NavigationTimeout = 1400 * time.Millisecond
	}
}

type Options struct {
	// ExecPath is the chrome/chromium binary. Empty picks the first one found
	// in the standard locations.
	ExecPath string

	// UserDataDir is the browser profile directory. Login state lives here, so
	// it must be stable across runs.
	UserDataDir string

	// Args are the browser command-line arguments. DefaultArgs is used when
	// empty.
	Args []string

	Headless bool

	// Sandbox enables the chromium sandbox.
	Sandbox bool

	// CommandExtensionDir is the unpacked command-interception extension. It
	// is always loaded first. Launch installs the bundled extension here when
	// the directory has none.
	CommandExtensionDir string

	// Extensions are other unpacked extension directories.
	Extensions []string

	Incognito bool

	// Port is the remote debugging port; zero picks a free port.
	Port int

	// LaunchTimeout bounds the wait for the browser's devtools endpoint.
	LaunchTimeout time.Duration

	// RequestTimeout bounds individual protocol requests issued outside of
	// navigation (cookies, script evaluation, etc.)
	RequestTimeout time.Duration

	// DisableCache when true disables the network cache on every page.
	DisableCache bool

	Timings Timings
}

func (v *Options) setDefaults() {
	if len(v.Args) == 0 {
		v.Args = append([]string(nil), DefaultArgs...)
	}
	if v.LaunchTimeout == 0 {
		v.LaunchTimeout = 1500 * time.Millisecond
	}
	if v.RequestTimeout == 0 {
		v.RequestTimeout = 2 * time.Second
	}
	v.Timings.setDefaults()
}

// Check validates the options.
func (v *Options) Check() error {
	if v.Port < 0 || v.Port > 65535 {
		return fmt.Errorf("invalid remote debugging port %d: %w", v.Port, ErrConfig)
	}
	if v.UserDataDir != "" && !filepath.IsAbs(v.UserDataDir) {
		return fmt.Errorf("user data dir %q must be an absolute path: %w", v.UserDataDir, ErrConfig)
	}
	if len(v.CommandExtensionDir) == 0 {
		return fmt.Errorf("command extension dir is required: %w", ErrConfig)
	}
	if !filepath.IsAbs(v.CommandExtensionDir) {
		return fmt.Errorf("command extension dir %q must be an absolute path: %w", v.CommandExtensionDir, ErrConfig)
	}
	for _, dir := range v.extensionDirs() {
		if strings.Contains(dir, ",") {
			return fmt.Errorf("extension path %q cannot contain commas: %w", dir, ErrConfig)
		}
	}
	for _, dir := range v.Extensions {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("could not stat extension dir %q: %w", dir, ErrConfig)
		}
	}
	if v.LaunchTimeout < 0 || v.RequestTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative: %w", ErrConfig)
	}
	if t := v.Timings; t.LaunchSettle < 0 || t.ProxySettle < 0 || t.ActionSettle < 0 || t.NavigationTimeout < 0 {
		return fmt.Errorf("timings cannot be negative: %w", ErrConfig)
	}
	for _, arg := range v.Args {
		if !strings.HasPrefix(arg, "--") {
			return fmt.Errorf("browser argument %q must start with \"--\": %w", arg, ErrConfig)
		}
	}
	return nil
}

func (v *Options) extensionDirs() []string {
	var dirs []string
	if v.CommandExtensionDir != "" {
		dirs = append(dirs, v.CommandExtensionDir)
	}
	return append(dirs, v.Extensions...)
}

// allocatorOptions turns the options into chromedp allocator options. Chromedp
// defaults are not used; the argument set is fully defined here.
func (v *Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	for _, arg := range v.Args {
		name, value := parseArg(arg)
		opts = append(opts, chromedp.Flag(name, value))
	}
	if v.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(v.ExecPath))
	}
	if v.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(v.UserDataDir))
	}
	if v.Headless {
		// Extensions are only supported by the new headless mode.
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if !v.Sandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if v.Incognito {
		opts = append(opts, chromedp.Flag("incognito", true))
	}
	if v.Port != 0 {
		opts = append(opts, chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", v.Port)))
	}
	if dirs := v.extensionDirs(); len(dirs) != 0 {
		list := strings.Join(dirs, ",")
		opts = append(opts,
			chromedp.Flag("disable-extensions-except", list),
			chromedp.Flag("load-extension", list),
		)
	}
	if v.LaunchTimeout > 0 {
		opts = append(opts, chromedp.WSURLReadTimeout(v.LaunchTimeout))
	}
	return opts
}

// parseArg splits a "--name=value" or "--name" argument into a chromedp flag.
func parseArg(arg string) (string, interface{}) {
	arg = strings.TrimLeft(arg, "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}
