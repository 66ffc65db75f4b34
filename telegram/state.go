// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"path"

	"github.com/bvkgo/kv"
)

// chatState holds the chat ids learned from the messages of authorized
// users. Bots cannot message a user before the user messages the bot.
type chatState struct {
	UserChatIDMap map[string]int64 `json:"user_chat_ids"`
}

func stateKey(botName string) string {
	return path.Join("/telegram", botName, "state")
}

func loadState(ctx context.Context, db kv.Database, key string) (state *chatState, err error) {
	err = kv.WithReader(ctx, db, func(ctx context.Context, r kv.Reader) error {
		value, err := r.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("could not Get from %q: %w", key, err)
		}
		s := new(chatState)
		if err := json.NewDecoder(value).Decode(s); err != nil {
			return fmt.Errorf("could not json-decode value at key %q: %w", key, err)
		}
		if s.UserChatIDMap == nil {
			s.UserChatIDMap = make(map[string]int64)
		}
		state = s
		return nil
	})
	return state, err
}

func saveState(ctx context.Context, db kv.Database, key string, state *chatState) error {
	js, err := json.Marshal(&chatState{UserChatIDMap: maps.Clone(state.UserChatIDMap)})
	if err != nil {
		return fmt.Errorf("could not json-encode telegram state: %w", err)
	}
	return kv.WithReadWriter(ctx, db, func(ctx context.Context, rw kv.ReadWriter) error {
		return rw.Set(ctx, key, bytes.NewReader(js))
	})
}
