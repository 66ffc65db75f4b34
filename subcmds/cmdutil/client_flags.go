// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"
)

type ClientFlags struct {
	addr        string
	HTTPTimeout time.Duration
}

func (cf *ClientFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&cf.addr, "connect-addr", "", "address of the status server (default=127.0.0.1:8890 or SUPPLYBOT_SERVER_ADDR value)")
	fset.DurationVar(&cf.HTTPTimeout, "http-timeout", 30*time.Second, "http client timeout")
}

func (cf *ClientFlags) Addr() string {
	if len(cf.addr) != 0 {
		return cf.addr
	}
	if v := os.Getenv("SUPPLYBOT_SERVER_ADDR"); len(v) != 0 {
		return v
	}
	return "127.0.0.1:8890"
}

func (cf *ClientFlags) AddressURL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   cf.Addr(),
		Path:   "/",
	}
}

func (cf *ClientFlags) HttpClient() *http.Client {
	return &http.Client{
		Timeout: cf.HTTPTimeout,
	}
}

// GetBody returns the response body of a GET request to the status server.
func GetBody(ctx context.Context, cf *ClientFlags, subpath string) ([]byte, error) {
	addrURL := cf.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, subpath)
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return nil, err
	}

	client := cf.HttpClient()
	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status code %d: %s", resp.StatusCode, data)
	}
	return data, nil
}

// Get json-decodes the response of a GET request to the status server.
func Get[RESP any](ctx context.Context, cf *ClientFlags, subpath string) (*RESP, error) {
	data, err := GetBody(ctx, cf, subpath)
	if err != nil {
		return nil, err
	}
	response := new(RESP)
	if err := json.Unmarshal(data, response); err != nil {
		return nil, err
	}
	return response, nil
}
