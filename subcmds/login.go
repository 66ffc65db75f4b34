// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bvk/supplybot/browser"
	"github.com/bvk/supplybot/seller"
	"github.com/bvk/supplybot/subcmds/cmdutil"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Login struct {
	cmdutil.ConfigFlags

	shutdownTimeout time.Duration
}

func (c *Login) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("login", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for a running instance to release the profile")
	return "login", fset, cli.CmdFunc(c.run)
}

func (c *Login) Purpose() string {
	return "Opens the browser to sign into the seller portal"
}

func (c *Login) Description() string {
	return `

Command "login" opens a visible browser on the seller portal with the profile
directory from the config file. Users are expected to sign into their seller
account and then press any key in the terminal.

Login state is verified by deriving the api credentials from the browser. On
success, first_run is cleared in the config file so that the "run" command
can start tracking.

`
}

func (c *Login) run(ctx context.Context, args []string) error {
	cfg, cfgPath, err := c.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}

	bopts, err := cfg.BrowserOptions()
	if err != nil {
		return err
	}
	bopts.Headless = false

	flock, err := lockProfile(ctx, bopts.UserDataDir, false /* restart */, c.shutdownTimeout)
	if err != nil {
		return err
	}
	defer flock.Unlock()

	session, err := browser.Launch(ctx, bopts)
	if err != nil {
		return fmt.Errorf("could not launch the browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("could not close the browser (ignored)", "err", err)
		}
	}()

	if _, err := session.Open(ctx, seller.PortalURL); err != nil {
		return fmt.Errorf("could not open the seller portal: %w", err)
	}

	fmt.Println("Sign into the seller portal in the browser window; do not close the window.")
	fmt.Println("Press any key to continue")
	if err := waitKey(); err != nil {
		return err
	}

	if _, err := seller.DeriveIdentity(ctx, session); err != nil {
		return fmt.Errorf("could not derive the seller portal credentials: %w", err)
	}
	fmt.Println("Sign in is successful")

	if cfg.Launch.FirstRun {
		cfg.Launch.FirstRun = false
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("could not update config file %q: %w", cfgPath, err)
		}
	}
	return nil
}

// waitKey waits for a single key press on the terminal.
func waitKey() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		b := make([]byte, 1)
		_, err := os.Stdin.Read(b)
		return err
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("could not switch terminal into raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return err
	}
	return nil
}
