// Copyright (c) 2025 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/supplybot/subcmds"
	"github.com/bvk/supplybot/subcmds/setup"
	"github.com/visvasity/cli"
)

func main() {
	setupCmds := []cli.Command{
		new(setup.Telegram),
		new(setup.PushOver),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Login),
		new(subcmds.Init),
		new(subcmds.Status),
		new(subcmds.Supplies),
		new(subcmds.Costs),
		cli.NewGroup("setup", "Configure notification services", setupCmds...),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
