// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/bvk/supplybot/subcmds/cmdutil"
	"github.com/bvk/supplybot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	cmdutil.ConfigFlags

	skipTesting bool

	ownerID  string
	adminID  string
	otherIDs string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Setup configures Telegram bot parameters"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	c.ConfigFlags.SetFlags(fset)
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user name")
	fset.StringVar(&c.adminID, "admin-id", "", "Administrator's telegram user name")
	fset.StringVar(&c.otherIDs, "other-ids", "", "Comma separated telegram user names of other receivers")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" helps users configure notifications to their Telegram
account through a Telegram bot.

Telegram configuration is optional. This is only required to receive
notifications to the mobile phones. They can be configured as follows:

  $ supplybot setup telegram --owner-id=username --bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
	cfg, cfgPath, err := c.ConfigFlags.LoadConfig()
	if err != nil {
		return err
	}

	secrets := &telegram.Secrets{
		OwnerID:  c.ownerID,
		AdminID:  c.adminID,
		BotToken: c.botToken,
	}
	if len(c.otherIDs) != 0 {
		secrets.OtherIDs = strings.Split(c.otherIDs, ",")
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	if !c.skipTesting {
		client, err := telegram.New(ctx, kvmemdb.New(), secrets)
		if err != nil {
			return err
		}
		defer client.Close()

		fmt.Printf("Send a message to the telegram bot @%s and then press any key\n", client.BotUserName())
		if err := waitKey(); err != nil {
			return err
		}

		send := func() error {
			return client.SendMessage(ctx, time.Now(), "Test message from Telegram config setup; please ignore.")
		}
		if err := ctxutil.RetryTimeout(ctx, time.Second, 10*time.Second, send); err != nil {
			return err
		}
	}

	cfg.Telegram = *secrets
	cfg.Launch.TelegramNotifications = true
	if err := cfg.Save(cfgPath); err != nil {
		return fmt.Errorf("could not update config file %q: %w", cfgPath, err)
	}
	return nil
}

func waitKey() error {
	fd := int(os.Stdin.Fd())
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
