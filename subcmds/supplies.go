// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/bvk/supplybot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Supplies struct {
	cmdutil.ConfigFlags

	all      bool
	headless bool
}

func (c *Supplies) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("supplies", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.BoolVar(&c.all, "all", false, "when true, prints supplies of all statuses")
	fset.BoolVar(&c.headless, "headless", true, "when true, browser window is not shown")
	return "supplies", fset, cli.CmdFunc(c.run)
}

func (c *Supplies) Purpose() string {
	return "Prints the not-planned supplies in json format"
}

func (c *Supplies) run(ctx context.Context, args []string) error {
	cfg, _, err := c.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}
	client, err := cmdutil.NewSellerClient(ctx, cfg, c.headless)
	if err != nil {
		return err
	}

	list := client.NotPlannedSupplies
	if c.all {
		list = client.AllSupplies
	}
	resp, err := list(ctx)
	if err != nil {
		return err
	}

	js, err := json.MarshalIndent(resp.Result.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", js)
	return nil
}

type Costs struct {
	cmdutil.ConfigFlags

	days     int
	headless bool
}

func (c *Costs) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("costs", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.IntVar(&c.days, "days", 0, "number of days to query (default=tracking days from the config)")
	fset.BoolVar(&c.headless, "headless", true, "when true, browser window is not shown")
	return "costs", fset, cli.CmdFunc(c.run)
}

func (c *Costs) Purpose() string {
	return "Prints the acceptance costs of a supply"
}

func (c *Costs) Description() string {
	return `

Command "costs" takes a preorder id argument and prints the acceptance
coefficient and cost for every date in the tracking window. Negative
coefficient means the date is not available.

`
}

func (c *Costs) run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("this command takes one (preorder id) argument")
	}
	preorderID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("could not parse preorder id %q: %w", args[0], err)
	}

	cfg, _, err := c.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}
	days := c.days
	if days == 0 {
		days = cfg.Tracking.Days
	}

	client, err := cmdutil.NewSellerClient(ctx, cfg, c.headless)
	if err != nil {
		return err
	}
	resp, err := client.AcceptanceCosts(ctx, preorderID, days)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Date\tCoefficient\tCost\tAvailable\t\n")
	for _, cost := range resp.Result.Costs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t\n", cost.ShortDate(), cost.Coefficient, cost.Cost, cost.IsAvailable())
	}
	tw.Flush()
	return nil
}
