// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/supplybot/config"
	"github.com/bvk/supplybot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Init struct {
	cmdutil.ConfigFlags
}

func (c *Init) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("init", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	return "init", fset, cli.CmdFunc(c.run)
}

func (c *Init) Purpose() string {
	return "Writes the default config file if it doesn't exist"
}

func (c *Init) run(ctx context.Context, args []string) error {
	p, err := c.ConfigFlags.ConfigPath()
	if err != nil {
		return err
	}
	created, err := config.InitIfMissing(p)
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("Config file already exists at %s\n", p)
		return nil
	}
	fmt.Printf("Config file is initialized at %s\n", p)
	return nil
}
