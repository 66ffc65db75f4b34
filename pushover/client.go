// Copyright (c) 2025 BVK Chaitanya

package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bvk/supplybot/notify"
)

const DefaultURL = "https://api.pushover.net/1/messages.json"

type Keys struct {
	ApplicationKey string `json:"app" yaml:"app"`
	UserKey        string `json:"user" yaml:"user"`
}

func (v *Keys) Check() error {
	if len(v.ApplicationKey) == 0 {
		return fmt.Errorf("pushover application key cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.UserKey) == 0 {
		return fmt.Errorf("pushover user key cannot be empty: %w", os.ErrInvalid)
	}
	return nil
}

type Options struct {
	// URL is the messages endpoint.
	URL string

	HttpClientTimeout time.Duration
}

func (v *Options) setDefaults() {
	if len(v.URL) == 0 {
		v.URL = DefaultURL
	}
	if v.HttpClientTimeout == 0 {
		v.HttpClientTimeout = 10 * time.Second
	}
}

type Client struct {
	url        string
	token      string
	user       string
	httpClient *http.Client
}

func New(keys *Keys, opts *Options) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = new(Options)
	}
	popts := *opts
	popts.setDefaults()

	c := &Client{
		url:        popts.URL,
		token:      keys.ApplicationKey,
		user:       keys.UserKey,
		httpClient: &http.Client{Timeout: popts.HttpClientTimeout},
	}
	return c, nil
}

type message struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	HTML      int    `json:"html,omitempty"`
	URL       string `json:"url,omitempty"`
	URLTitle  string `json:"url_title,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (c *Client) SendMessage(ctx context.Context, at time.Time, msg string) error {
	return c.send(ctx, &message{
		Token:     c.token,
		User:      c.user,
		Timestamp: at.Unix(),
		Message:   msg,
	})
}

// Notify sends the plain text form of the notice. Pushover messages carry a
// single supplementary url, so only the first link is attached.
func (c *Client) Notify(ctx context.Context, n *notify.Notice) error {
	m := &message{
		Token:     c.token,
		User:      c.user,
		Title:     n.Title,
		Message:   n.Text,
		Timestamp: n.At.Unix(),
	}
	if len(n.Links) > 0 {
		m.URL, m.URLTitle = n.Links[0].URL, n.Links[0].Text
	}
	return c.send(ctx, m)
}

func (c *Client) send(ctx context.Context, m *message) error {
	var msgbuf bytes.Buffer
	if err := json.NewEncoder(&msgbuf).Encode(m); err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &msgbuf)
	if err != nil {
		return fmt.Errorf("could not create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()
	type Response struct {
		Status  int      `json:"status"`
		Request string   `json:"request"`
		Errors  []string `json:"errors"`
	}
	r := new(Response)
	if err := json.NewDecoder(resp.Body).Decode(r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d and error: %w", resp.StatusCode, errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with http-status %d and zero response-status code (%#v)", resp.StatusCode, *r)
	}
	return nil
}
