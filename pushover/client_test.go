// Copyright (c) 2025 BVK Chaitanya

package pushover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bvk/supplybot/notify"
)

var testingKeys *Keys

func checkKeys() bool {
	if testingKeys != nil {
		return true
	}
	data, err := os.ReadFile("pushover-keys.json")
	if err != nil {
		return false
	}
	s := new(Keys)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	testingKeys = s
	return true
}

func TestSendMessage(t *testing.T) {
	if !checkKeys() {
		t.Skip("no keys")
		return
	}

	c, err := New(testingKeys, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendMessage(context.Background(), time.Now(), t.Name()); err != nil {
		t.Fatal(err)
	}
}

func newFakeServer(t *testing.T, reply string, got *message) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(reply))
	}))
}

func TestNotify(t *testing.T) {
	got := new(message)
	s := newFakeServer(t, `{"status":1,"request":"r1"}`, got)
	defer s.Close()

	c, err := New(&Keys{ApplicationKey: "app", UserKey: "user"}, &Options{URL: s.URL})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Unix(1751364000, 0)
	n := &notify.Notice{
		At:    at,
		Title: "title",
		Text:  "body",
		Links: []notify.Link{{Text: "W1", URL: "https://example.com/1"}, {Text: "W2", URL: "https://example.com/2"}},
	}
	if err := c.Notify(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	if got.Token != "app" || got.User != "user" || got.Title != "title" || got.Message != "body" {
		t.Fatalf("unexpected message %+v", got)
	}
	if got.URL != "https://example.com/1" || got.URLTitle != "W1" || got.Timestamp != at.Unix() {
		t.Fatalf("unexpected url or timestamp %+v", got)
	}
}

func TestSendFailure(t *testing.T) {
	s := newFakeServer(t, `{"status":0,"errors":["user identifier is invalid"]}`, new(message))
	defer s.Close()

	c, err := New(&Keys{ApplicationKey: "app", UserKey: "bad"}, &Options{URL: s.URL})
	if err != nil {
		t.Fatal(err)
	}
	err = c.SendMessage(context.Background(), time.Now(), "x")
	if err == nil || !strings.Contains(err.Error(), "user identifier is invalid") {
		t.Fatalf("want the service error, got %v", err)
	}
}

func TestKeysCheck(t *testing.T) {
	if _, err := New(&Keys{UserKey: "user"}, nil); err == nil {
		t.Fatalf("want error for missing application key")
	}
}
