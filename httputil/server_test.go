// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"testing"
)

func get(t *testing.T, addr *net.TCPAddr, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(data)
}

func TestServer(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1")}
	id, err := s.StartTCP(context.Background(), addr)
	if err != nil {
		t.Fatal(err)
	}
	if addr.Port == 0 {
		t.Fatalf("want the chosen port number in the address")
	}

	s.AddHandler("/pid", PIDHandler())
	if code, body := get(t, addr, "/pid"); code != http.StatusOK || body != fmt.Sprintf("%d", os.Getpid()) {
		t.Fatalf("unexpected pid response %d %q", code, body)
	}

	var stopped atomic.Bool
	s.AddHandler("/healthz", HealthHandler(func() error {
		if stopped.Load() {
			return errors.New("tracker is stopped")
		}
		return nil
	}))
	if code, body := get(t, addr, "/healthz"); code != http.StatusOK || !strings.HasPrefix(body, "ok ") {
		t.Fatalf("unexpected health response %d %q", code, body)
	}
	stopped.Store(true)
	if code, body := get(t, addr, "/healthz"); code != http.StatusServiceUnavailable || !strings.Contains(body, "tracker is stopped") {
		t.Fatalf("unexpected health response %d %q", code, body)
	}

	s.AddHandler("/ledger", JSONHandler(func() (map[string]int, error) {
		return map[string]int{"a": 1}, nil
	}))
	code, body := get(t, addr, "/ledger")
	if code != http.StatusOK {
		t.Fatalf("unexpected ledger status %d", code)
	}
	var m map[string]int
	if err := json.Unmarshal([]byte(body), &m); err != nil || m["a"] != 1 {
		t.Fatalf("unexpected ledger body %q: %v", body, err)
	}

	if !s.RemoveHandler("/ledger") {
		t.Fatalf("want handler to be removed")
	}
	if s.RemoveHandler("/ledger") {
		t.Fatalf("want false for a missing handler")
	}
	if code, _ := get(t, addr, "/ledger"); code != http.StatusNotFound {
		t.Fatalf("want 404 after removal, got %d", code)
	}

	if err := s.Stop(id); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(id); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want ErrNotExist for a stopped server, got %v", err)
	}
}
