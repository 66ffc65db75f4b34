// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bvk/supplybot/notify"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

var testingSecrets *Secrets

func checkSecrets() bool {
	if testingSecrets != nil {
		return true
	}
	data, err := os.ReadFile("telegram-creds.json")
	if err != nil {
		return false
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	if err := s.Check(); err != nil {
		return false
	}
	testingSecrets = s
	return true
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	if !checkSecrets() {
		t.Skip("no credentials")
		return
	}

	db := kvmemdb.New()
	c, err := New(ctx, db, testingSecrets)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	t.Logf("Authorized on account %s with owner %s", c.BotUserName(), c.OwnerUserName())

	c.SendMessage(ctx, time.Now(), "hello")
}

func newTestClient() *Client {
	return &Client{
		db:         kvmemdb.New(),
		self:       &models.User{Username: "testbot"},
		secrets:    &Secrets{BotToken: "t", OwnerID: "owner", AdminID: "admin", OtherIDs: []string{"other"}},
		state:      &chatState{UserChatIDMap: make(map[string]int64)},
		commandMap: make(map[string]*Command),
	}
}

func newCommandUpdate(user, text string, length int) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   7,
			From: &models.User{Username: user},
			Chat: models.Chat{ID: 42},
			Text: text,
			Entities: []models.MessageEntity{
				{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length},
			},
		},
	}
}

func TestGetCommand(t *testing.T) {
	c := newTestClient()
	echo := func(ctx context.Context, args []string) error {
		fmt.Fprint(cli.Stdout(ctx), args)
		return nil
	}
	if err := c.addCommand("supplies", "Prints tracked supplies", echo); err != nil {
		t.Fatal(err)
	}
	if err := c.addCommand("supplies", "again", echo); !errors.Is(err, os.ErrExist) {
		t.Fatalf("want ErrExist for duplicate command, got %v", err)
	}
	if err := c.addCommand("", "x", echo); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid for empty command name, got %v", err)
	}

	cmd, args, handler, err := c.getCommand(newCommandUpdate("owner", "/supplies all 14", 9))
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "supplies" || len(args) != 2 || args[0] != "all" || handler == nil {
		t.Fatalf("unexpected command %q args %v", cmd, args)
	}

	if cmd, _, _, err := c.getCommand(newCommandUpdate("owner", "/supplies@testbot", 17)); err != nil || cmd != "supplies" {
		t.Fatalf("want addressed command to resolve, got %q %v", cmd, err)
	}
	if _, _, _, err := c.getCommand(newCommandUpdate("owner", "/missing", 8)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist for unknown command, got %v", err)
	}
	if _, _, _, err := c.getCommand(&models.Update{Message: &models.Message{Text: "hello"}}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want ErrInvalid for plain text, got %v", err)
	}

	p := c.commands()
	if len(p.Commands) != 1 || p.Commands[0].Command != "supplies" {
		t.Fatalf("unexpected bot commands %+v", p.Commands)
	}
}

func TestIsValidUser(t *testing.T) {
	c := newTestClient()
	for _, user := range []string{"owner", "admin", "other"} {
		if !c.isValidUser(user) {
			t.Errorf("%s must be a valid user", user)
		}
	}
	if c.isValidUser("stranger") {
		t.Errorf("stranger must not be a valid user")
	}

	c.secrets.AdminID = ""
	if c.isValidUser("") {
		t.Errorf("empty user name must not match an empty admin id")
	}
}

func TestChatState(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()

	if _, err := loadState(ctx, c.db, stateKey("testbot")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist for missing state, got %v", err)
	}

	if err := c.updateChatIDs(ctx, newCommandUpdate("owner", "/uptime", 7)); err != nil {
		t.Fatal(err)
	}
	state, err := loadState(ctx, c.db, stateKey("testbot"))
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := state.UserChatIDMap["owner"]; !ok || id != 42 {
		t.Fatalf("want chat id 42 for owner, got %v", state.UserChatIDMap)
	}
}

func TestBroadcastWithoutChatIDs(t *testing.T) {
	c := newTestClient()
	err := c.Notify(context.Background(), &notify.Notice{HTML: "<b>x</b>"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist without any known chat, got %v", err)
	}
}

func TestInlineKeyboard(t *testing.T) {
	if m := inlineKeyboard(nil); m != nil {
		t.Fatalf("want no keyboard without links")
	}
	m := inlineKeyboard([]notify.Link{{Text: "A", URL: "https://a"}, {Text: "B", URL: "https://b"}})
	if len(m.InlineKeyboard) != 2 || m.InlineKeyboard[1][0].Text != "B" || m.InlineKeyboard[1][0].URL != "https://b" {
		t.Fatalf("want one button row per link, got %+v", m.InlineKeyboard)
	}
}

func TestSecretsCheck(t *testing.T) {
	bad := []Secrets{
		{OwnerID: "o"},
		{BotToken: "t"},
		{BotToken: "t", OwnerID: "o", OtherIDs: []string{""}},
		{BotToken: "t", OwnerID: "o", OtherIDs: []string{"o"}},
		{BotToken: "t", OwnerID: "o", AdminID: "a", OtherIDs: []string{"a"}},
	}
	for i, s := range bad {
		if err := s.Check(); err == nil {
			t.Errorf("%d: want error", i)
		}
	}
	good := &Secrets{BotToken: "t", OwnerID: "o", OtherIDs: []string{"x"}}
	if err := good.Check(); err != nil {
		t.Fatal(err)
	}
}
