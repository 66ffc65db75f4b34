// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/bvk/supplybot/notify"
	"github.com/bvk/supplybot/subcmds/cmdutil"
	"github.com/bvk/supplybot/tracker"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Prints the health and the tracked supplies of a running instance"
}

func (c *Status) run(ctx context.Context, args []string) error {
	pid, err := cmdutil.GetBody(ctx, &c.ClientFlags, "/pid")
	if err != nil {
		return fmt.Errorf("could not reach the running instance at %s: %w", c.ClientFlags.Addr(), err)
	}
	fmt.Printf("PID: %s\n", pid)

	health, err := cmdutil.GetBody(ctx, &c.ClientFlags, "/healthz")
	if err != nil {
		fmt.Printf("Health: %v\n", err)
	} else {
		fmt.Printf("Health: %s\n", strings.TrimSpace(string(health)))
	}

	ledger, err := cmdutil.Get[tracker.Ledger](ctx, &c.ClientFlags, "/ledger")
	if err != nil {
		return fmt.Errorf("could not fetch the tracked supplies: %w", err)
	}
	fmt.Println()
	fmt.Print(notify.FormatLedger(*ledger))
	return nil
}
