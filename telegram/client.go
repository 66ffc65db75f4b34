// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bvk/supplybot/ctxutil"
	"github.com/bvk/supplybot/notify"
	"github.com/bvkgo/kv"
	"github.com/visvasity/cli"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type CmdFunc = cli.CmdFunc

type Command struct {
	Purpose string
	Handler CmdFunc
}

type Client struct {
	cg ctxutil.CloseGroup

	db kv.Database

	mu sync.Mutex

	bot *bot.Bot

	self *models.User

	secrets *Secrets

	state *chatState

	commandMap map[string]*Command
}

var start = time.Now()

func New(ctx context.Context, db kv.Database, secrets *Secrets) (_ *Client, status error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:         db,
		secrets:    secrets.Clone(),
		commandMap: make(map[string]*Command),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(c.handler),
	}
	bot, err := bot.New(secrets.BotToken, opts...)
	if err != nil {
		return nil, err
	}
	c.bot = bot

	self, err := bot.GetMe(ctx)
	if err != nil {
		return nil, err
	}
	c.self = self

	state, err := loadState(ctx, db, stateKey(self.Username))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &chatState{
			UserChatIDMap: make(map[string]int64),
		}
	}
	c.state = state

	// Configure the builtin commands.
	c.commandMap["uptime"] = &Command{
		Purpose: "Prints supplybot uptime",
		Handler: c.uptime,
	}
	c.commandMap["version"] = &Command{
		Purpose: "Prints version information",
		Handler: c.version,
	}

	if ok, err := c.bot.SetMyCommands(ctx, c.commands()); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("could not set bot commands")
	}

	c.cg.Go(func(ctx context.Context) {
		c.bot.Start(ctx)
	})
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.self.Username
}

func (c *Client) OwnerUserName() string {
	return c.secrets.OwnerID
}

func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler CmdFunc) error {
	if err := c.addCommand(name, purpose, handler); err != nil {
		return err
	}
	if ok, err := c.bot.SetMyCommands(ctx, c.commands()); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

func (c *Client) addCommand(name, purpose string, handler CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return os.ErrInvalid
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.commandMap[name]; ok {
		return os.ErrExist
	}
	c.commandMap[name] = &Command{
		Purpose: purpose,
		Handler: handler,
	}
	return nil
}

func (c *Client) commands() *bot.SetMyCommandsParams {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cmds []models.BotCommand
	for cmd, cdata := range c.commandMap {
		cmds = append(cmds, models.BotCommand{
			Command:     cmd,
			Description: cdata.Purpose,
		})
	}
	slices.SortFunc(cmds, func(a, b models.BotCommand) int {
		return strings.Compare(a.Command, b.Command)
	})
	p := &bot.SetMyCommandsParams{
		Commands: cmds,
	}
	return p
}

func (c *Client) getCommand(update *models.Update) (string, []string, CmdFunc, error) {
	if update.Message == nil {
		return "", nil, nil, os.ErrInvalid
	}
	if len(update.Message.Entities) == 0 {
		return "", nil, nil, os.ErrInvalid
	}
	entity := update.Message.Entities[0]
	if entity.Type != models.MessageEntityTypeBotCommand {
		return "", nil, nil, os.ErrInvalid
	}
	if entity.Offset != 0 {
		return "", nil, nil, os.ErrInvalid
	}
	if len(update.Message.Text) < entity.Length || update.Message.Text[0] != '/' {
		return "", nil, nil, os.ErrInvalid
	}
	cmd := update.Message.Text[1:entity.Length]
	// Commands in group chats are addressed as /cmd@botname.
	cmd, _, _ = strings.Cut(cmd, "@")
	args := strings.Fields(strings.TrimSpace(update.Message.Text[entity.Length:]))

	c.mu.Lock()
	cdata, ok := c.commandMap[cmd]
	c.mu.Unlock()

	if !ok {
		return cmd, nil, nil, os.ErrNotExist
	}
	return cmd, args, cdata.Handler, nil
}

func (c *Client) isValidUser(user string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if user == c.secrets.OwnerID || slices.Contains(c.secrets.OtherIDs, user) {
		return true
	}
	return len(c.secrets.AdminID) != 0 && user == c.secrets.AdminID
}

// SendMessage sends a plain text message prefixed with the timestamp.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text
	slog.Info("sending notification", "at", at, "message", text)

	return c.broadcast(ctx, func(cid int64) *bot.SendMessageParams {
		return &bot.SendMessageParams{
			ChatID: cid,
			Text:   msg,
		}
	})
}

// Notify sends the html form of the notice with one url button per link.
func (c *Client) Notify(ctx context.Context, n *notify.Notice) error {
	markup := inlineKeyboard(n.Links)
	return c.broadcast(ctx, func(cid int64) *bot.SendMessageParams {
		p := &bot.SendMessageParams{
			ChatID:    cid,
			Text:      n.HTML,
			ParseMode: models.ParseModeHTML,
		}
		if markup != nil {
			p.ReplyMarkup = markup
		}
		return p
	})
}

func inlineKeyboard(links []notify.Link) *models.InlineKeyboardMarkup {
	if len(links) == 0 {
		return nil
	}
	var rows [][]models.InlineKeyboardButton
	for _, l := range links {
		rows = append(rows, []models.InlineKeyboardButton{{Text: l.Text, URL: l.URL}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// broadcast sends a message to every receiver with a known chat id. It fails
// only when no receiver could be reached.
func (c *Client) broadcast(ctx context.Context, build func(chatID int64) *bot.SendMessageParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	delivered := 0
	for _, receiver := range c.secrets.receivers() {
		cid, ok := c.state.UserChatIDMap[receiver]
		if !ok {
			slog.Warn("could not notify receiver without chat id", "receiver", receiver)
			errs = append(errs, fmt.Errorf("receiver %q has no chat id: %w", receiver, os.ErrNotExist))
			continue
		}
		if _, err := c.bot.SendMessage(ctx, build(cid)); err != nil {
			slog.Error("could not notify receiver (ignored)", "receiver", receiver, "err", err)
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Client) handler(ctx context.Context, bot *bot.Bot, update *models.Update) {
	if bot != c.bot {
		slog.Error("handler invoked with invalid bot value", "want", c.bot, "got", bot)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	sender := update.Message.From.Username
	if !c.isValidUser(sender) {
		slog.Warn("received message from unauthorized user (ignored)", "sender", sender, "message", update.Message.Text)
		return
	}

	if err := c.updateChatIDs(ctx, update); err != nil {
		slog.Warn("could not update chat id values (ignored)", "err", err)
	}

	if err := c.respond(ctx, update); err != nil {
		slog.Error("could not respond to user command (ignored)", "user", sender, "err", err)
		return
	}
}

func (c *Client) respond(ctx context.Context, update *models.Update) (status error) {
	True := true

	var reply string
	defer func() {
		if len(reply) != 0 {
			p := &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   reply,
				ReplyParameters: &models.ReplyParameters{
					MessageID: update.Message.ID,
				},
				LinkPreviewOptions: &models.LinkPreviewOptions{
					IsDisabled: &True,
				},
			}
			if _, err := c.bot.SendMessage(ctx, p); err != nil {
				status = err
			}
		}
	}()

	defer func() {
		if status != nil {
			reply = status.Error()
			status = nil
		}
	}()

	cmd, args, handler, err := c.getCommand(update)
	if err != nil {
		return err
	}

	var sb strings.Builder
	if err := handler(cli.WithStdout(ctx, &sb), args); err != nil {
		sender := update.Message.From.Username
		slog.Error("could not handle user command (ignored)", "cmd", cmd, "user", sender, "err", err)
		return err
	}

	reply = sb.String()
	return nil
}

func (c *Client) updateChatIDs(ctx context.Context, update *models.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sender := update.Message.From.Username
	if id, ok := c.state.UserChatIDMap[sender]; !ok || id != update.Message.Chat.ID {
		c.state.UserChatIDMap[sender] = update.Message.Chat.ID
		slog.Info("updating chat id from a message of authorized user", "user", sender, "chat-id", update.Message.Chat.ID)

		if err := saveState(ctx, c.db, stateKey(c.BotUserName()), c.state); err != nil {
			slog.Error("could not save telegram state to the db", "err", err)
			return err
		}
	}
	return nil
}

func (c *Client) uptime(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	const day = 24 * time.Hour
	d := time.Since(start)
	if d < day {
		fmt.Fprintf(stdout, "%v", d)
		return nil
	}
	days := d / day
	fmt.Fprintf(stdout, "%dd%v", days, d%day)
	return nil
}

func (c *Client) version(ctx context.Context, _ []string) error {
	stdout := cli.Stdout(ctx)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("could not read build information")
	}
	// Do not print version information for the dependencies. It can overflow the
	// Telegram size limits.
	fmt.Fprintln(stdout, "Go: ", info.GoVersion)
	fmt.Fprintln(stdout, "Main Module Path: ", info.Main.Path)
	fmt.Fprintln(stdout, "Main Module Version: ", info.Main.Version)
	for _, s := range info.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			fmt.Fprintln(stdout, s.Key, ": ", s.Value)
		}
	}
	return nil
}
