// Copyright (c) 2025 BVK Chaitanya

package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bvk/supplybot/ctxutil"
)

// Command urls understood by the command-interception extension. These urls
// never load; the extension acts on them and the navigation fails.
const (
	setProxyURL   = "chrome://set_proxy/"
	resetProxyURL = "chrome://reset_proxy"
	clearDataURL  = "chrome://clear_data"
	closeTabsURL  = "chrome://close_tabs"
)

// Proxy is an http proxy server with optional credentials.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
}

// ParseProxy parses a proxy in "host:port" or "user:pass@host:port" form.
func ParseProxy(s string) (*Proxy, error) {
	var p Proxy
	hostport := s
	if creds, rest, ok := strings.Cut(s, "@"); ok {
		user, pass, ok := strings.Cut(creds, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("proxy credentials must be in user:pass form: %w", ErrConfig)
		}
		p.Username, p.Password, hostport = user, pass, rest
	}
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("could not parse proxy address %q: %w", hostport, ErrConfig)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return nil, fmt.Errorf("invalid proxy port %q: %w", port, ErrConfig)
	}
	if host == "" {
		return nil, fmt.Errorf("proxy host cannot be empty: %w", ErrConfig)
	}
	p.Host, p.Port = host, n
	return &p, nil
}

// String returns the proxy in the "user:pass@host:port" form, without
// credentials when there are none.
func (p *Proxy) String() string {
	hostport := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	if p.Username == "" {
		return hostport
	}
	return p.Username + ":" + p.Password + "@" + hostport
}

// Query returns the proxy in the query-parameter form, which is safe for
// credentials with reserved characters.
func (p *Proxy) Query() string {
	values := make(url.Values)
	values.Set("host", p.Host)
	values.Set("port", strconv.Itoa(p.Port))
	if p.Username != "" {
		values.Set("username", p.Username)
		values.Set("password", p.Password)
	}
	return "?" + values.Encode()
}

// commandURL returns the set-proxy command url for the proxy. Path form needs
// credentials, so query form is used without them or when they need escaping.
func (p *Proxy) commandURL() string {
	if p.Username == "" || p.Password == "" || strings.ContainsAny(p.Username+p.Password, ":@/?#&%= ") {
		return setProxyURL + p.Query()
	}
	return setProxyURL + p.String()
}

// SetProxy routes all browser traffic through the proxy.
func (s *Session) SetProxy(ctx context.Context, proxy *Proxy) error {
	return s.command(ctx, proxy.commandURL(), s.opts.Timings.ProxySettle)
}

// ResetProxy restores direct connections.
func (s *Session) ResetProxy(ctx context.Context) error {
	return s.command(ctx, resetProxyURL, s.opts.Timings.ActionSettle)
}

// ClearData clears browsing data of the profile.
func (s *Session) ClearData(ctx context.Context) error {
	return s.command(ctx, clearDataURL, s.opts.Timings.ActionSettle)
}

// CloseExtraneousTabs closes all tabs other than the initial one.
func (s *Session) CloseExtraneousTabs(ctx context.Context) error {
	return s.command(ctx, closeTabsURL, s.opts.Timings.ActionSettle)
}

// command opens the command url in a fresh tab.
func (s *Session) command(ctx context.Context, cmdURL string, settle time.Duration) error {
	p, err := s.NewPage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Debug("could not close command tab (ignored)", "url", cmdURL, "err", err)
		}
	}()
	return runCommand(ctx, p, cmdURL, s.opts.Timings.NavigationTimeout, settle)
}

// navigator loads urls into a tab.
type navigator interface {
	NavigateTimeout(ctx context.Context, url string, timeout time.Duration) error
}

// runCommand navigates to the command url and waits for the settle delay.
// Navigation failures are the expected outcome and are ignored; other errors
// are returned.
func runCommand(ctx context.Context, nav navigator, cmdURL string, timeout, settle time.Duration) error {
	if err := nav.NavigateTimeout(ctx, cmdURL, timeout); err != nil && !isTransportError(err) {
		return fmt.Errorf("could not issue browser command %q: %w", cmdURL, err)
	}
	ctxutil.Sleep(ctx, settle)
	return nil
}
